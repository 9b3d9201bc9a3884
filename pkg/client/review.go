package client

import (
	"context"
	"fmt"
)

// ReviewScore is the questionnaire a reviewer fills for a project.
type ReviewScore struct {
	PSA                     []int   `json:"psa,omitempty"`
	PSAComment              *string `json:"psa_comment,omitempty"`
	RNCI                    *int    `json:"rnci,omitempty"`
	RNCIComment             *string `json:"rnci_comment,omitempty"`
	RATP                    *int    `json:"ratp,omitempty"`
	RATPComment             *string `json:"ratp_comment,omitempty"`
	RA                      *int    `json:"ra,omitempty"`
	RAComment               *string `json:"ra_comment,omitempty"`
	EE                      *int    `json:"ee,omitempty"`
	EEComment               *string `json:"ee_comment,omitempty"`
	NST                     *int    `json:"nst,omitempty"`
	NSTComment              *string `json:"nst_comment,omitempty"`
	NC                      *int    `json:"nc,omitempty"`
	NCComment               *string `json:"nc_comment,omitempty"`
	PS                      *int    `json:"ps,omitempty"`
	PSComment               *string `json:"ps_comment,omitempty"`
	OverallReviewerFeedback *string `json:"overall_reviewer_feedback,omitempty"`
	Status                  string  `json:"status,omitempty"`
}

// FillReview submits a review questionnaire.
func (c *Client) FillReview(ctx context.Context, reviewID int, score ReviewScore) error {
	return c.post(ctx, fmt.Sprintf("/api/project-review/%d/fill/", reviewID), score, nil)
}
