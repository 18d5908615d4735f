package correspondence

import "github.com/render-align/elastic-align/internal/alignerr"

func duplicateCorrespondenceError(a, b int) error {
	return alignerr.DuplicateCorrespondence.New("duplicate correspondence record between layers %d and %d", a, b)
}
