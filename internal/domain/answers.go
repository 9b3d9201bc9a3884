package domain

import "fmt"

// Question is a donor or country specific custom question.
type Question struct {
	ID       int      `json:"id"`
	Question string   `json:"question"`
	Type     int      `json:"type"`
	Required bool     `json:"required"`
	Private  bool     `json:"private"`
	Options  []string `json:"options"`
}

// QuestionCatalog is one owner (donor or country) together with its
// questions.
type QuestionCatalog struct {
	OwnerID   int
	Questions []Question
}

// Reconcile merges stored answers against the question catalogs. The result
// holds exactly one entry per catalog question, in catalog order, carrying the
// stored answer when one exists and an empty answer otherwise. Stored answers
// for questions outside the catalogs are dropped. When tagDonor is set the
// entries carry the owner id as DonorID and a stored answer tagged with the
// same donor wins over an untagged one.
func Reconcile(catalogs []QuestionCatalog, stored []CustomAnswer, tagDonor bool) []CustomAnswer {
	type key struct{ owner, question int }
	byQuestion := make(map[key]CustomAnswer, len(stored))
	for _, a := range stored {
		k := key{question: a.QuestionID}
		if tagDonor {
			k.owner = a.DonorID
		}
		byQuestion[k] = a
	}

	out := []CustomAnswer{}
	for _, c := range catalogs {
		for _, q := range c.Questions {
			entry := CustomAnswer{QuestionID: q.ID, Answer: []string{}}
			a, ok := byQuestion[key{question: q.ID}]
			if tagDonor {
				if owned, found := byQuestion[key{owner: c.OwnerID, question: q.ID}]; found {
					a, ok = owned, true
				}
				entry.DonorID = c.OwnerID
			}
			if ok && a.Answer != nil {
				entry.Answer = append([]string{}, a.Answer...)
			}
			out = append(out, entry)
		}
	}
	return out
}

// DonorCatalogs resolves the question catalogs of the given donors. Donors
// without questions contribute nothing; a donor whose details are unknown is
// an ErrNotFound.
func DonorCatalogs(donorIDs []int, details map[int]*Donor) ([]QuestionCatalog, error) {
	out := make([]QuestionCatalog, 0, len(donorIDs))
	for _, id := range donorIDs {
		d, ok := details[id]
		if !ok || d == nil {
			return nil, fmt.Errorf("donor %d: %w", id, ErrNotFound)
		}
		if len(d.DonorQuestions) == 0 {
			continue
		}
		out = append(out, QuestionCatalog{OwnerID: d.ID, Questions: d.DonorQuestions})
	}
	return out, nil
}

// UpsertAnswer replaces the answer for the same question or appends it.
func UpsertAnswer(answers []CustomAnswer, answer CustomAnswer) []CustomAnswer {
	out := cloneAnswers(answers)
	for i, a := range out {
		if a.QuestionID == answer.QuestionID {
			out[i] = answer
			return out
		}
	}
	return append(out, answer)
}

// FindAnswer returns the answer to the given question, if any.
func FindAnswer(answers []CustomAnswer, questionID int) (CustomAnswer, bool) {
	for _, a := range answers {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return CustomAnswer{}, false
}
