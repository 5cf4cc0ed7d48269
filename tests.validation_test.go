package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookValidator(t *testing.T) {
	bv := NewBookValidator()

	testCases := []struct {
		name     string
		book     Book
		expected []string
	}{
		{
			name:     "valid book without isbn",
			book:     Book{Title: "Dune", Author: "Frank Herbert", Year: 1965},
			expected: nil,
		},
		{
			name:     "valid book with isbn",
			book:     Book{Title: "Dune", Author: "Frank Herbert", Year: 1965, ISBN: "9780441172719"},
			expected: nil,
		},
		{
			name:     "blank title",
			book:     Book{Title: "   ", Author: "Frank Herbert", Year: 1965},
			expected: []string{"title: Title is required"},
		},
		{
			name:     "missing author",
			book:     Book{Title: "Dune", Year: 1965},
			expected: []string{"author: Author name is required"},
		},
		{
			name:     "zero year",
			book:     Book{Title: "Dune", Author: "Frank Herbert"},
			expected: []string{"year: Year must be a positive number"},
		},
		{
			name:     "negative year",
			book:     Book{Title: "Dune", Author: "Frank Herbert", Year: -3},
			expected: []string{"year: Year must be a positive number"},
		},
		{
			name:     "largest storable year",
			book:     Book{Title: "Dune", Author: "Frank Herbert", Year: 2147483647},
			expected: nil,
		},
		{
			name:     "year beyond storable range",
			book:     Book{Title: "Dune", Author: "Frank Herbert", Year: 2147483648},
			expected: []string{"year: Year must not exceed 2147483647"},
		},
		{
			name:     "short isbn",
			book:     Book{Title: "Dune", Author: "Frank Herbert", Year: 1965, ISBN: "97804411727"},
			expected: []string{"isbn: ISBN must be exactly 13 characters"},
		},
		{
			name:     "isbn with letters",
			book:     Book{Title: "Dune", Author: "Frank Herbert", Year: 1965, ISBN: "97804411727AB"},
			expected: []string{"isbn: ISBN must contain only 13 digits"},
		},
		{
			name: "all fields invalid",
			book: Book{ISBN: "x"},
			expected: []string{
				"title: Title is required",
				"author: Author name is required",
				"year: Year must be a positive number",
				"isbn: ISBN must be exactly 13 characters",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, bv.Validate(&tc.book))
		})
	}
}
