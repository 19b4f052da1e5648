package service

import (
	"net/url"

	"github.com/kirychukyurii/mission-control/internal/model"
)

// decodeName percent-decodes a job name; pipeline branch jobs are stored encoded, e.g. "feature%2Flogin".
// A '+' is kept as is. Names that do not decode are returned verbatim.
func decodeName(name string) string {
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return name
	}
	return decoded
}

// qualifyingName is the name filters are matched against: the decoded full hierarchical name
func qualifyingName(job *model.Job) string {
	return decodeName(job.FullName)
}

// displayName is the name shown for a job in the status panel
func displayName(job *model.Job, qualifyFolders bool) string {
	name := decodeName(job.Name)
	if qualifyFolders && job.Parent != nil && job.Parent.Folder {
		return decodeName(job.Parent.FullName) + " / " + name
	}
	return name
}
