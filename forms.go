package central

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sofatutor/go-odk-central/odkerr"
	"github.com/sofatutor/go-odk-central/session"
)

// Form states reported by Central.
const (
	FormStateOpen    = "open"
	FormStateClosing = "closing"
	FormStateClosed  = "closed"
)

// Form is the metadata Central returns for a form.
type Form struct {
	ProjectID int    `json:"projectId"`
	XMLFormID string `json:"xmlFormId"`
	// Name is empty if Central could not parse the XForm title.
	Name        string     `json:"name,omitempty"`
	Version     string     `json:"version"`
	State       string     `json:"state"`
	Hash        string     `json:"hash,omitempty"`
	EnketoID    string     `json:"enketoId,omitempty"`
	KeyID       *int       `json:"keyId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// FormsService provides access to the Forms endpoints via client.Forms.
type FormsService struct {
	session          *session.Session
	defaultProjectID int
	defaultFormID    string
}

// FormCreateOptions are the optional parts of a form creation.
type FormCreateOptions struct {
	// ProjectID overrides the configured default project.
	ProjectID int
	// IgnoreWarnings creates the form even if the definition produces
	// XLSForm warnings.
	IgnoreWarnings bool
	// Draft leaves the new form in draft state instead of publishing it.
	Draft bool
}

// FormUpdateOptions are the optional parts of a form update.
type FormUpdateOptions struct {
	// ProjectID overrides the configured default project.
	ProjectID int
	// Definition is the new form definition XML. The new version name must
	// be specified inside the definition.
	Definition []byte
	// Version names the published version when no definition is supplied.
	// Defaults to the current timestamp in RFC 3339 format.
	Version string
}

// List reads the metadata of all forms in a project.
func (s *FormsService) List(ctx context.Context, projectID int) ([]Form, error) {
	pid, err := requireProjectID(projectID, s.defaultProjectID)
	if err != nil {
		return nil, err
	}
	var forms []Form
	if err := s.session.DoJSON(ctx, http.MethodGet, fmt.Sprintf("projects/%d/forms", pid), nil, &forms); err != nil {
		return nil, err
	}
	for i := range forms {
		if err := forms[i].check(); err != nil {
			return nil, err
		}
	}
	return forms, nil
}

// Get reads one form's metadata. formID is the id from the XForms XML
// definition; a zero projectID falls back to the configured default.
func (s *FormsService) Get(ctx context.Context, formID string, projectID int) (*Form, error) {
	pid, err := requireProjectID(projectID, s.defaultProjectID)
	if err != nil {
		return nil, err
	}
	fid, err := requireString("form id", formID, s.defaultFormID)
	if err != nil {
		return nil, err
	}
	var form Form
	path := fmt.Sprintf("projects/%d/forms/%s", pid, url.PathEscape(fid))
	if err := s.session.DoJSON(ctx, http.MethodGet, path, nil, &form); err != nil {
		return nil, err
	}
	if err := form.check(); err != nil {
		return nil, err
	}
	return &form, nil
}

// Create uploads a new form definition. The definition is created in draft
// state and then published, unless opts.Draft is set. The form id comes from
// the definition itself; the returned record carries the value Central
// assigned.
func (s *FormsService) Create(ctx context.Context, definition []byte, opts *FormCreateOptions) (*Form, error) {
	if opts == nil {
		opts = &FormCreateOptions{}
	}
	pid, err := requireProjectID(opts.ProjectID, s.defaultProjectID)
	if err != nil {
		return nil, err
	}
	if len(definition) == 0 {
		return nil, odkerr.New(odkerr.KindValidation, "a form definition must be provided")
	}

	query := url.Values{"publish": {"false"}}
	if opts.IgnoreWarnings {
		query.Set("ignoreWarnings", "true")
	}
	reqOpts := &session.RequestOptions{
		Query:  query,
		Header: http.Header{"Content-Type": {"application/xml"}},
		Body:   definition,
	}

	var form Form
	if err := s.session.DoJSON(ctx, http.MethodPost, fmt.Sprintf("projects/%d/forms", pid), reqOpts, &form); err != nil {
		return nil, err
	}
	if err := form.check(); err != nil {
		return nil, err
	}

	if !opts.Draft {
		if err := s.publishDraft(ctx, pid, form.XMLFormID, ""); err != nil {
			return nil, err
		}
	}
	return &form, nil
}

// Update publishes a new version of an existing form: a new draft is started
// from opts.Definition (or from the current published version when nil), then
// published. When no definition carries a version name, opts.Version is used,
// defaulting to the current timestamp.
func (s *FormsService) Update(ctx context.Context, formID string, opts *FormUpdateOptions) error {
	if opts == nil {
		opts = &FormUpdateOptions{}
	}
	pid, err := requireProjectID(opts.ProjectID, s.defaultProjectID)
	if err != nil {
		return err
	}
	fid, err := requireString("form id", formID, s.defaultFormID)
	if err != nil {
		return err
	}

	draftPath := fmt.Sprintf("projects/%d/forms/%s/draft", pid, url.PathEscape(fid))
	var draftOpts *session.RequestOptions
	if len(opts.Definition) > 0 {
		draftOpts = &session.RequestOptions{
			Header: http.Header{"Content-Type": {"application/xml"}},
			Body:   opts.Definition,
		}
	}
	if err := s.session.DoJSON(ctx, http.MethodPost, draftPath, draftOpts, nil); err != nil {
		return err
	}

	version := ""
	if len(opts.Definition) == 0 {
		version = opts.Version
		if version == "" {
			version = time.Now().UTC().Format(time.RFC3339)
		}
	}
	return s.publishDraft(ctx, pid, fid, version)
}

// publishDraft publishes the current draft of a form, optionally under a new
// version name.
func (s *FormsService) publishDraft(ctx context.Context, projectID int, formID, version string) error {
	path := fmt.Sprintf("projects/%d/forms/%s/draft/publish", projectID, url.PathEscape(formID))
	var reqOpts *session.RequestOptions
	if version != "" {
		reqOpts = &session.RequestOptions{Query: url.Values{"version": {version}}}
	}
	return s.session.DoJSON(ctx, http.MethodPost, path, reqOpts, nil)
}

// check verifies the fields every form record must carry.
func (f *Form) check() error {
	if f.XMLFormID == "" {
		return odkerr.New(odkerr.KindResponseShape, "form record is missing an xmlFormId")
	}
	return nil
}
