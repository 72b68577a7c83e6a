package central

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sofatutor/go-odk-central/odkerr"
	"github.com/sofatutor/go-odk-central/session"
)

// Project is the metadata Central returns for a project.
type Project struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Archived       bool       `json:"archived,omitempty"`
	KeyID          *int       `json:"keyId,omitempty"`
	AppUsers       int        `json:"appUsers,omitempty"`
	Forms          int        `json:"forms,omitempty"`
	LastSubmission *time.Time `json:"lastSubmission,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
	DeletedAt      *time.Time `json:"deletedAt,omitempty"`
}

// ProjectsService provides access to the Projects endpoints via
// client.Projects.
type ProjectsService struct {
	session          *session.Session
	defaultProjectID int
}

// List reads the metadata of all projects visible to the authenticated user.
// Calling List again re-reads from the server.
func (s *ProjectsService) List(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := s.session.DoJSON(ctx, http.MethodGet, "projects", nil, &projects); err != nil {
		return nil, err
	}
	for i := range projects {
		if err := projects[i].check(); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

// Get reads one project's metadata. A zero projectID falls back to the
// configured default.
func (s *ProjectsService) Get(ctx context.Context, projectID int) (*Project, error) {
	pid, err := requireProjectID(projectID, s.defaultProjectID)
	if err != nil {
		return nil, err
	}
	var project Project
	if err := s.session.DoJSON(ctx, http.MethodGet, fmt.Sprintf("projects/%d", pid), nil, &project); err != nil {
		return nil, err
	}
	if err := project.check(); err != nil {
		return nil, err
	}
	return &project, nil
}

// check verifies the fields every project record must carry.
func (p *Project) check() error {
	if p.ID <= 0 {
		return odkerr.New(odkerr.KindResponseShape, "project record is missing an id")
	}
	return nil
}
