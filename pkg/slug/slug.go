package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// spanishReplacer transliterates the accented characters that show up in the
// catalog's Spanish product titles.
var spanishReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	"ü", "u", "ñ", "n",
)

// Generate builds a URL-friendly slug from a product title.
//
//	"Termo Acero Inoxidable 1.4 Lts" -> "termo-acero-inoxidable-1-4-lts"
//	"Edición Limitada"               -> "edicion-limitada"
func Generate(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = spanishReplacer.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
