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

// Conflict states Central reports for an entity.
const (
	ConflictSoft = "soft"
	ConflictHard = "hard"
)

// EntityList is the metadata Central returns for an entity list (dataset).
// Conceptually an entity list's parent is a project; entities belong to an
// entity list the way submissions belong to a form.
type EntityList struct {
	Name             string     `json:"name"`
	ProjectID        int        `json:"projectId"`
	ApprovalRequired bool       `json:"approvalRequired"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastEntity       *time.Time `json:"lastEntity,omitempty"`
}

// EntityVersion is one version of an entity's label and data.
type EntityVersion struct {
	Label     string `json:"label"`
	Current   bool   `json:"current"`
	Version   int    `json:"version"`
	CreatorID int    `json:"creatorId"`
	UserAgent string `json:"userAgent,omitempty"`
	// Data holds the property values; Central stores them as strings.
	Data                  map[string]string `json:"data,omitempty"`
	BaseVersion           *int              `json:"baseVersion,omitempty"`
	ConflictingProperties []string          `json:"conflictingProperties,omitempty"`
	CreatedAt             time.Time         `json:"createdAt"`
}

// Entity is the metadata Central returns for an entity.
type Entity struct {
	UUID           string        `json:"uuid"`
	CreatorID      int           `json:"creatorId"`
	CurrentVersion EntityVersion `json:"currentVersion"`
	// Conflict is empty without an unresolved conflict, else one of the
	// Conflict constants.
	Conflict  string     `json:"conflict,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// EntityListProperty is one named property of an entity list.
type EntityListProperty struct {
	Name        string    `json:"name"`
	ODataName   string    `json:"odataName"`
	Forms       []string  `json:"forms,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// EntitiesService provides access to the entity list and entity endpoints
// via client.Entities.
type EntitiesService struct {
	session           *session.Session
	defaultProjectID  int
	defaultEntityList string
}

// EntityCreateOptions are the optional parts of an entity creation.
type EntityCreateOptions struct {
	ProjectID  int
	EntityList string
	// UUID identifies the new entity. Defaults to a generated v4 UUID.
	// Unlike submission instance ids, entity uuids carry no "uuid:" prefix.
	UUID string
}

// EntityUpdateOptions are the optional parts of an entity update. Exactly one
// of Force or BaseVersion must be set: BaseVersion states the version the
// update is based on and lets Central detect conflicts, Force applies the
// update regardless of the entity's current state.
type EntityUpdateOptions struct {
	ProjectID  int
	EntityList string
	// Label replaces the entity's label when set.
	Label string
	// Data replaces the named property values when set.
	Data        map[string]string
	Force       bool
	BaseVersion *int
}

// EntityTableOptions select how to read an entity list's OData table. The
// dollar-prefixed fields mirror Central's OData query parameters.
type EntityTableOptions struct {
	ProjectID  int
	EntityList string
	// Skip omits the first n rows.
	Skip int
	// Top returns at most n rows.
	Top int
	// Count adds an @odata.count property with the total row count,
	// ignoring Skip and Top.
	Count bool
	// Filter restricts rows by system fields.
	Filter string
	// Select returns only the named fields.
	Select string
}

// NewEntityID returns a fresh entity uuid. Central expects a literal UUID
// here, without the "uuid:" prefix used for submission instance ids.
func NewEntityID() string {
	return uuid.NewString()
}

// ids resolves the project id and entity list name for a call.
func (s *EntitiesService) ids(projectID int, entityList string) (int, string, error) {
	pid, err := requireProjectID(projectID, s.defaultProjectID)
	if err != nil {
		return 0, "", err
	}
	name, err := requireString("entity list name", entityList, s.defaultEntityList)
	if err != nil {
		return 0, "", err
	}
	return pid, name, nil
}

func entitiesPath(projectID int, entityList string) string {
	return fmt.Sprintf("projects/%d/datasets/%s/entities", projectID, url.PathEscape(entityList))
}

// Lists reads the metadata of all entity lists in a project.
func (s *EntitiesService) Lists(ctx context.Context, projectID int) ([]EntityList, error) {
	pid, err := requireProjectID(projectID, s.defaultProjectID)
	if err != nil {
		return nil, err
	}
	var lists []EntityList
	if err := s.session.DoJSON(ctx, http.MethodGet, fmt.Sprintf("projects/%d/datasets", pid), nil, &lists); err != nil {
		return nil, err
	}
	for i := range lists {
		if err := lists[i].check(); err != nil {
			return nil, err
		}
	}
	return lists, nil
}

// List reads the metadata of all entities in an entity list. Calling List
// again re-reads from the server.
func (s *EntitiesService) List(ctx context.Context, entityList string, projectID int) ([]Entity, error) {
	pid, name, err := s.ids(projectID, entityList)
	if err != nil {
		return nil, err
	}
	var entities []Entity
	if err := s.session.DoJSON(ctx, http.MethodGet, entitiesPath(pid, name), nil, &entities); err != nil {
		return nil, err
	}
	for i := range entities {
		if err := entities[i].check(); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// Get reads one entity's metadata and current version.
func (s *EntitiesService) Get(ctx context.Context, entityID, entityList string, projectID int) (*Entity, error) {
	pid, name, err := s.ids(projectID, entityList)
	if err != nil {
		return nil, err
	}
	eid, err := requireString("entity uuid", entityID, "")
	if err != nil {
		return nil, err
	}
	var entity Entity
	path := entitiesPath(pid, name) + "/" + url.PathEscape(eid)
	if err := s.session.DoJSON(ctx, http.MethodGet, path, nil, &entity); err != nil {
		return nil, err
	}
	if err := entity.check(); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Create adds an entity to an entity list. Every key of data must exist as a
// property on the entity list; CreateProperty adds missing ones.
func (s *EntitiesService) Create(ctx context.Context, label string, data map[string]string, opts *EntityCreateOptions) (*Entity, error) {
	if opts == nil {
		opts = &EntityCreateOptions{}
	}
	pid, name, err := s.ids(opts.ProjectID, opts.EntityList)
	if err != nil {
		return nil, err
	}
	if label == "" {
		return nil, odkerr.New(odkerr.KindValidation, "an entity label must be provided")
	}
	entityID := opts.UUID
	if entityID == "" {
		entityID = NewEntityID()
	}
	if data == nil {
		data = map[string]string{}
	}

	reqOpts := &session.RequestOptions{JSON: map[string]any{
		"uuid":  entityID,
		"label": label,
		"data":  data,
	}}
	var entity Entity
	if err := s.session.DoJSON(ctx, http.MethodPost, entitiesPath(pid, name), reqOpts, &entity); err != nil {
		return nil, err
	}
	if err := entity.check(); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Update changes an entity's label or data, producing a new version. See
// EntityUpdateOptions for the Force and BaseVersion rules.
func (s *EntitiesService) Update(ctx context.Context, entityID string, opts *EntityUpdateOptions) (*Entity, error) {
	if opts == nil {
		opts = &EntityUpdateOptions{}
	}
	pid, name, err := s.ids(opts.ProjectID, opts.EntityList)
	if err != nil {
		return nil, err
	}
	eid, err := requireString("entity uuid", entityID, "")
	if err != nil {
		return nil, err
	}
	if opts.Force == (opts.BaseVersion != nil) {
		return nil, odkerr.New(odkerr.KindValidation, "exactly one of Force or BaseVersion must be set")
	}

	query := url.Values{}
	if opts.Force {
		query.Set("force", "true")
	} else {
		query.Set("baseVersion", strconv.Itoa(*opts.BaseVersion))
	}
	body := map[string]any{}
	if opts.Label != "" {
		body["label"] = opts.Label
	}
	if opts.Data != nil {
		body["data"] = opts.Data
	}

	reqOpts := &session.RequestOptions{Query: query, JSON: body}
	path := entitiesPath(pid, name) + "/" + url.PathEscape(eid)
	var entity Entity
	if err := s.session.DoJSON(ctx, http.MethodPatch, path, reqOpts, &entity); err != nil {
		return nil, err
	}
	if err := entity.check(); err != nil {
		return nil, err
	}
	return &entity, nil
}

// Delete removes an entity from its list.
func (s *EntitiesService) Delete(ctx context.Context, entityID, entityList string, projectID int) error {
	pid, name, err := s.ids(projectID, entityList)
	if err != nil {
		return err
	}
	eid, err := requireString("entity uuid", entityID, "")
	if err != nil {
		return err
	}
	path := entitiesPath(pid, name) + "/" + url.PathEscape(eid)
	return s.session.DoJSON(ctx, http.MethodDelete, path, nil, nil)
}

// CreateProperty adds a named property to an entity list. Property names
// follow form field naming rules and cannot be "name", "label", or start
// with "__".
func (s *EntitiesService) CreateProperty(ctx context.Context, propertyName, entityList string, projectID int) error {
	pid, name, err := s.ids(projectID, entityList)
	if err != nil {
		return err
	}
	if propertyName == "" {
		return odkerr.New(odkerr.KindValidation, "a property name must be provided")
	}

	reqOpts := &session.RequestOptions{JSON: map[string]string{"name": propertyName}}
	path := fmt.Sprintf("projects/%d/datasets/%s/properties", pid, url.PathEscape(name))
	return s.session.DoJSON(ctx, http.MethodPost, path, reqOpts, nil)
}

// Table reads entity data through the OData .svc endpoint, one page as
// returned by the server.
func (s *EntitiesService) Table(ctx context.Context, opts *EntityTableOptions) (*Table, error) {
	if opts == nil {
		opts = &EntityTableOptions{}
	}
	pid, name, err := s.ids(opts.ProjectID, opts.EntityList)
	if err != nil {
		return nil, err
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
	if opts.Filter != "" {
		query.Set("$filter", opts.Filter)
	}
	if opts.Select != "" {
		query.Set("$select", opts.Select)
	}

	var reqOpts *session.RequestOptions
	if len(query) > 0 {
		reqOpts = &session.RequestOptions{Query: query}
	}
	path := fmt.Sprintf("projects/%d/datasets/%s.svc/Entities", pid, url.PathEscape(name))
	var table Table
	if err := s.session.DoJSON(ctx, http.MethodGet, path, reqOpts, &table); err != nil {
		return nil, err
	}
	return &table, nil
}

// check verifies the fields every entity list record must carry.
func (el *EntityList) check() error {
	if el.Name == "" {
		return odkerr.New(odkerr.KindResponseShape, "entity list record is missing a name")
	}
	return nil
}

// check verifies the fields every entity record must carry.
func (e *Entity) check() error {
	if e.UUID == "" {
		return odkerr.New(odkerr.KindResponseShape, "entity record is missing a uuid")
	}
	return nil
}
