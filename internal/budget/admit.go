package budget

import "sort"

// Admit walks items in order and admits each one whose tokens fit in what
// remains of effective. Items that do not fit are rejected and the walk
// continues, so smaller items later in the list can still be admitted.
func Admit[T any](items []T, tokens func(T) int, effective int) (admitted, rejected []T, used int) {
	for _, item := range items {
		n := tokens(item)
		if used+n > effective {
			rejected = append(rejected, item)
			continue
		}
		admitted = append(admitted, item)
		used += n
	}
	return admitted, rejected, used
}

// SortSmallestFirst orders items by ascending token count. Ties keep their
// original order.
func SortSmallestFirst[T any](items []T, tokens func(T) int) {
	sort.SliceStable(items, func(i, j int) bool {
		return tokens(items[i]) < tokens(items[j])
	})
}

// EstimateTokens approximates the token count of text at four bytes per
// token, rounded up.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
