package repository

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchPattern builds a lowercase prefix pattern for LIKE, escaping the
// metacharacters so user input matches literally.
func searchPattern(term string) string {
	return likeEscaper.Replace(strings.ToLower(term)) + "%"
}
