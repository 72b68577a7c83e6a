package central

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sofatutor/go-odk-central/odkerr"
	"github.com/sofatutor/go-odk-central/session"
)

// Review states accepted by Central.
const (
	ReviewApproved  = "approved"
	ReviewHasIssues = "hasIssues"
	ReviewRejected  = "rejected"
	ReviewEdited    = "edited"
)

// Submission is the metadata Central returns for a submission.
type Submission struct {
	InstanceID   string `json:"instanceId"`
	InstanceName string `json:"instanceName,omitempty"`
	SubmitterID  int    `json:"submitterId"`
	DeviceID     string `json:"deviceId,omitempty"`
	// ReviewState is empty for submissions that were never reviewed;
	// otherwise one of the Review constants.
	ReviewState string     `json:"reviewState,omitempty"`
	UserAgent   string     `json:"userAgent,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Table is one page of OData table data for a form, as returned by the .svc
// endpoints. Value rows are kept as generic maps since their shape is defined
// by each form.
type Table struct {
	Context string           `json:"@odata.context"`
	Count   *int64           `json:"@odata.count,omitempty"`
	Value   []map[string]any `json:"value"`
}

// SubmissionsService provides access to the Submissions endpoints via
// client.Submissions.
type SubmissionsService struct {
	session          *session.Session
	defaultProjectID int
	defaultFormID    string
}

// SubmissionCreateOptions are the optional parts of a submission creation.
type SubmissionCreateOptions struct {
	ProjectID int
	// DeviceID is recorded against the submission when set.
	DeviceID string
}

// SubmissionUpdateOptions are the optional parts of Edit and Review.
type SubmissionUpdateOptions struct {
	ProjectID int
	FormID    string
	// Comment is posted against the submission after the update, when set.
	Comment string
}

// TableOptions select which OData table to read and how. The dollar-prefixed
// fields mirror Central's OData query parameters.
type TableOptions struct {
	ProjectID int
	FormID    string
	// TableName defaults to "Submissions"; repeat groups live in child
	// tables.
	TableName string
	// Skip omits the first n rows.
	Skip int
	// Top returns at most n rows.
	Top int
	// Count adds an @odata.count property with the total row count,
	// ignoring Skip and Top.
	Count bool
	// WKT returns geospatial values as Well-Known Text instead of GeoJSON.
	WKT bool
	// Filter restricts rows by system fields (submitterId, createdAt,
	// updatedAt, reviewState).
	Filter string
	// Expand may be "*" to expand all repetitions.
	Expand string
	// Select returns only the named fields.
	Select string
}

// NewInstanceID returns a fresh submission instance id in the default XForm
// format: "uuid:" followed by a random UUIDv4.
func NewInstanceID() string {
	return "uuid:" + uuid.NewString()
}

// ids resolves the project and form identifiers for a call.
func (s *SubmissionsService) ids(projectID int, formID string) (int, string, error) {
	pid, err := requireProjectID(projectID, s.defaultProjectID)
	if err != nil {
		return 0, "", err
	}
	fid, err := requireString("form id", formID, s.defaultFormID)
	if err != nil {
		return 0, "", err
	}
	return pid, fid, nil
}

func submissionsPath(projectID int, formID string) string {
	return fmt.Sprintf("projects/%d/forms/%s/submissions", projectID, url.PathEscape(formID))
}

// List reads the metadata of all submissions to a form. Calling List again
// re-reads from the server.
func (s *SubmissionsService) List(ctx context.Context, formID string, projectID int) ([]Submission, error) {
	pid, fid, err := s.ids(projectID, formID)
	if err != nil {
		return nil, err
	}
	var submissions []Submission
	if err := s.session.DoJSON(ctx, http.MethodGet, submissionsPath(pid, fid), nil, &submissions); err != nil {
		return nil, err
	}
	for i := range submissions {
		if err := submissions[i].check(); err != nil {
			return nil, err
		}
	}
	return submissions, nil
}

// Get reads one submission's metadata.
func (s *SubmissionsService) Get(ctx context.Context, instanceID, formID string, projectID int) (*Submission, error) {
	pid, fid, err := s.ids(projectID, formID)
	if err != nil {
		return nil, err
	}
	iid, err := requireString("instance id", instanceID, "")
	if err != nil {
		return nil, err
	}
	var submission Submission
	path := submissionsPath(pid, fid) + "/" + url.PathEscape(iid)
	if err := s.session.DoJSON(ctx, http.MethodGet, path, nil, &submission); err != nil {
		return nil, err
	}
	if err := submission.check(); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Create submits new submission XML to a form. The instance id is read from
// the XML; NewInstanceID produces ids in the expected format.
func (s *SubmissionsService) Create(ctx context.Context, xml []byte, formID string, opts *SubmissionCreateOptions) (*Submission, error) {
	if opts == nil {
		opts = &SubmissionCreateOptions{}
	}
	pid, fid, err := s.ids(opts.ProjectID, formID)
	if err != nil {
		return nil, err
	}
	if len(xml) == 0 {
		return nil, odkerr.New(odkerr.KindValidation, "submission xml must be provided")
	}

	reqOpts := &session.RequestOptions{
		Header: http.Header{"Content-Type": {"application/xml"}},
		Body:   xml,
	}
	if opts.DeviceID != "" {
		reqOpts.Query = url.Values{"deviceID": {opts.DeviceID}}
	}

	var submission Submission
	if err := s.session.DoJSON(ctx, http.MethodPost, submissionsPath(pid, fid), reqOpts, &submission); err != nil {
		return nil, err
	}
	if err := submission.check(); err != nil {
		return nil, err
	}
	return &submission, nil
}

// Edit replaces a submission's XML with an edited version and optionally
// comments on it. The edited XML must reference the submission's current
// version in a deprecatedID element and carry a fresh instanceID.
func (s *SubmissionsService) Edit(ctx context.Context, instanceID string, xml []byte, opts *SubmissionUpdateOptions) error {
	if opts == nil {
		opts = &SubmissionUpdateOptions{}
	}
	pid, fid, err := s.ids(opts.ProjectID, opts.FormID)
	if err != nil {
		return err
	}
	iid, err := requireString("instance id", instanceID, "")
	if err != nil {
		return err
	}
	if len(xml) == 0 {
		return odkerr.New(odkerr.KindValidation, "submission xml must be provided")
	}

	reqOpts := &session.RequestOptions{
		Header: http.Header{"Content-Type": {"application/xml"}},
		Body:   xml,
	}
	path := submissionsPath(pid, fid) + "/" + url.PathEscape(iid)
	if err := s.session.DoJSON(ctx, http.MethodPut, path, reqOpts, nil); err != nil {
		return err
	}
	if opts.Comment != "" {
		_, err := s.Comment(ctx, instanceID, opts.Comment, opts.FormID, opts.ProjectID)
		return err
	}
	return nil
}

// Review sets a submission's review state and optionally comments on it.
func (s *SubmissionsService) Review(ctx context.Context, instanceID, reviewState string, opts *SubmissionUpdateOptions) (*Submission, error) {
	if opts == nil {
		opts = &SubmissionUpdateOptions{}
	}
	pid, fid, err := s.ids(opts.ProjectID, opts.FormID)
	if err != nil {
		return nil, err
	}
	iid, err := requireString("instance id", instanceID, "")
	if err != nil {
		return nil, err
	}
	if reviewState == "" {
		return nil, odkerr.New(odkerr.KindValidation, "a review state must be provided")
	}

	reqOpts := &session.RequestOptions{JSON: map[string]string{"reviewState": reviewState}}
	path := submissionsPath(pid, fid) + "/" + url.PathEscape(iid)
	var submission Submission
	if err := s.session.DoJSON(ctx, http.MethodPatch, path, reqOpts, &submission); err != nil {
		return nil, err
	}
	if opts.Comment != "" {
		if _, err := s.Comment(ctx, instanceID, opts.Comment, opts.FormID, opts.ProjectID); err != nil {
			return nil, err
		}
	}
	return &submission, nil
}

// Table reads submission data through the OData .svc endpoint, one page as
// returned by the server.
func (s *SubmissionsService) Table(ctx context.Context, opts *TableOptions) (*Table, error) {
	if opts == nil {
		opts = &TableOptions{}
	}
	pid, fid, err := s.ids(opts.ProjectID, opts.FormID)
	if err != nil {
		return nil, err
	}
	tableName := opts.TableName
	if tableName == "" {
		tableName = "Submissions"
	}

	query := url.Values{}
	if opts.Skip > 0 {
		query.Set("$skip", strconv.Itoa(opts.Skip))
	}
	if opts.Top > 0 {
		query.Set("$top", strconv.Itoa(opts.Top))
	}
	if opts.Count {
		query.Set("$count", "true")
	}
	if opts.WKT {
		query.Set("$wkt", "true")
	}
	if opts.Filter != "" {
		query.Set("$filter", opts.Filter)
	}
	if opts.Expand != "" {
		query.Set("$expand", opts.Expand)
	}
	if opts.Select != "" {
		query.Set("$select", opts.Select)
	}

	var reqOpts *session.RequestOptions
	if len(query) > 0 {
		reqOpts = &session.RequestOptions{Query: query}
	}
	path := fmt.Sprintf("projects/%d/forms/%s.svc/%s", pid, url.PathEscape(fid), url.PathEscape(tableName))
	var table Table
	if err := s.session.DoJSON(ctx, http.MethodGet, path, reqOpts, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// check verifies the fields every submission record must carry.
func (sub *Submission) check() error {
	if sub.InstanceID == "" {
		return odkerr.New(odkerr.KindResponseShape, "submission record is missing an instanceId")
	}
	return nil
}
