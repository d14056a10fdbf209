package validate

import (
	"fmt"

	"github.com/kevinbarfleur/cinequiz-sub000/internal/domain"
)

// Catalog structurally checks a question batch. Loading is all-or-nothing:
// a single bad record rejects the whole batch.
func Catalog(questions []domain.Question) Result {
	if len(questions) == 0 {
		return fail("question catalog is empty")
	}
	var errs []string
	seen := make(map[string]struct{}, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			errs = append(errs, fmt.Sprintf("question %d: id is required", i))
		} else if _, dup := seen[q.ID]; dup {
			errs = append(errs, fmt.Sprintf("question %d: duplicate id %s", i, q.ID))
		} else {
			seen[q.ID] = struct{}{}
		}
		if q.Text == "" {
			errs = append(errs, fmt.Sprintf("question %d: text is required", i))
		}
		if len(q.Answers) < 2 {
			errs = append(errs, fmt.Sprintf("question %d: at least two answer options are required", i))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Answers) {
			errs = append(errs, fmt.Sprintf("question %d: correct index %d is out of range", i, q.CorrectIndex))
		}
	}
	if len(errs) > 0 {
		return fail(errs...)
	}
	return ok()
}
