package central

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/sofatutor/go-odk-central/odkerr"
	"github.com/sofatutor/go-odk-central/session"
)

// Comment is a remark recorded against a submission.
type Comment struct {
	Body      string    `json:"body"`
	ActorID   int       `json:"actorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Comments reads all comments on a submission, newest first as Central
// returns them.
func (s *SubmissionsService) Comments(ctx context.Context, instanceID, formID string, projectID int) ([]Comment, error) {
	pid, fid, err := s.ids(projectID, formID)
	if err != nil {
		return nil, err
	}
	iid, err := requireString("instance id", instanceID, "")
	if err != nil {
		return nil, err
	}
	var comments []Comment
	path := submissionsPath(pid, fid) + "/" + url.PathEscape(iid) + "/comments"
	if err := s.session.DoJSON(ctx, http.MethodGet, path, nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// Comment records a new comment on a submission.
func (s *SubmissionsService) Comment(ctx context.Context, instanceID, body, formID string, projectID int) (*Comment, error) {
	pid, fid, err := s.ids(projectID, formID)
	if err != nil {
		return nil, err
	}
	iid, err := requireString("instance id", instanceID, "")
	if err != nil {
		return nil, err
	}
	if body == "" {
		return nil, odkerr.New(odkerr.KindValidation, "a comment body must be provided")
	}

	reqOpts := &session.RequestOptions{JSON: map[string]string{"body": body}}
	path := submissionsPath(pid, fid) + "/" + url.PathEscape(iid) + "/comments"
	var comment Comment
	if err := s.session.DoJSON(ctx, http.MethodPost, path, reqOpts, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}
