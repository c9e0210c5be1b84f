package storedsafe

import "strings"

// LookupTerm identifies one value to retrieve: a vault object and the name of
// the field to extract from it. The reserved field name "download" selects
// the object's attached file content instead of a named field.
type LookupTerm struct {
	ObjectID  string
	FieldName string
}

// ParseTerm parses an input term of the form "<objectid>/<fieldname>". The
// split happens on the first slash only, so the field name may itself
// contain slashes.
func ParseTerm(term string) (LookupTerm, error) {
	parts := strings.SplitN(term, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return LookupTerm{}, NewInvalidTermError(term)
	}
	return LookupTerm{ObjectID: parts[0], FieldName: parts[1]}, nil
}

// IsDownload reports whether the term requests file-content retrieval.
func (t LookupTerm) IsDownload() bool {
	return t.FieldName == DownloadField
}

func (t LookupTerm) String() string {
	return t.ObjectID + "/" + t.FieldName
}
