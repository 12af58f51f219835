// Package palette assigns token chip colors by stream position.
package palette

// Pair is a chip background and border color as #RRGGBB.
type Pair struct {
	Background string
	Border     string
}

// pairs alternate warm and cool hues so neighbouring chips never share a color.
var pairs = []Pair{
	{Background: "#FDE68A", Border: "#B45309"},
	{Background: "#A7F3D0", Border: "#047857"},
	{Background: "#BFDBFE", Border: "#1D4ED8"},
	{Background: "#FBCFE8", Border: "#BE185D"},
	{Background: "#DDD6FE", Border: "#6D28D9"},
	{Background: "#FED7AA", Border: "#C2410C"},
	{Background: "#99F6E4", Border: "#0F766E"},
	{Background: "#FECACA", Border: "#B91C1C"},
	{Background: "#D9F99D", Border: "#4D7C0F"},
	{Background: "#C7D2FE", Border: "#4338CA"},
}

// Size returns the number of distinct pairs.
func Size() int {
	return len(pairs)
}

// For returns the color pair for a token at the given sequence index.
// Negative indices are treated as zero.
func For(index int) Pair {
	if index < 0 {
		index = 0
	}
	return pairs[index%len(pairs)]
}
