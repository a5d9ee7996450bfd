// Package catalog derives the dashboard's product counts.
//
// The backend owns the category set and it is open ended, so a summary has a
// total tile, one tile per configured summary category, and an Other tile
// that catches every product outside those categories. The tiles always add
// up to the total.
package catalog
