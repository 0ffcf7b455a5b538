package form

import (
	"context"
	"errors"
	"strings"

	"github.com/packrat-app/packrat/internal/models"
)

// State of an in-progress edit.
type State int

const (
	// Pristine means the form matches its baseline (loaded or last-saved values).
	Pristine State = iota
	// Dirty means at least one field or the attachment list differs from the baseline.
	Dirty
	// Submitting means a create/update is in flight.
	Submitting
)

func (s State) String() string {
	switch s {
	case Dirty:
		return "dirty"
	case Submitting:
		return "submitting"
	default:
		return "pristine"
	}
}

var (
	// ErrValidation means required fields are missing; see FieldErrors.
	ErrValidation = errors.New("validation failed")
	// ErrNotDirty blocks an update submit when nothing changed.
	ErrNotDirty = errors.New("nothing to save")
	// ErrSubmitInFlight blocks a second submit while one is pending.
	ErrSubmitInFlight = errors.New("submit already in flight")
)

// Store is where submissions go. *client.Client satisfies it.
type Store interface {
	CreateAsset(ctx context.Context, fields models.AssetFields) (models.Asset, error)
	UpdateAsset(ctx context.Context, id string, fields models.AssetFields) (*models.Asset, error)
}

type snapshot struct {
	name        string
	description string
	location    string
	attachments []string
}

// Controller manages one edit session over an asset's fields and its
// attachment list. Construct with NewCreate for a blank form or NewEdit to
// edit an existing asset; the mode decides whether Submit creates or
// updates. Not safe for concurrent use; it models a single screen.
type Controller struct {
	store   Store
	assetID string // empty in create mode

	baseline snapshot

	name        string
	description string
	location    string
	attachments []string

	fieldErrors map[string]string
	submitting  bool
}

// NewCreate returns a blank pristine controller in create mode.
func NewCreate(store Store) *Controller {
	c := &Controller{store: store}
	c.load(snapshot{})
	return c
}

// NewEdit returns a pristine controller in update mode, with the asset's
// current values as baseline. The caller reads the asset once (no live
// subscription on the edit screen) and hands it over.
func NewEdit(store Store, asset *models.Asset) *Controller {
	c := &Controller{store: store, assetID: asset.ID}
	c.load(snapshot{
		name:        asset.Name,
		description: asset.Description,
		location:    asset.Location,
		attachments: asset.Attachments,
	})
	return c
}

func (c *Controller) load(base snapshot) {
	if base.attachments == nil {
		base.attachments = []string{}
	}
	c.baseline = snapshot{
		name:        base.name,
		description: base.description,
		location:    base.location,
		attachments: append([]string{}, base.attachments...),
	}
	c.name = base.name
	c.description = base.description
	c.location = base.location
	c.attachments = append([]string{}, base.attachments...)
	c.fieldErrors = nil
}

// ==========================
// Field edits
// ==========================

func (c *Controller) SetName(v string)        { c.name = v }
func (c *Controller) SetDescription(v string) { c.description = v }
func (c *Controller) SetLocation(v string)    { c.location = v }

func (c *Controller) Name() string        { return c.name }
func (c *Controller) Description() string { return c.description }
func (c *Controller) Location() string    { return c.location }

// Attachments returns a copy of the current list in display order.
func (c *Controller) Attachments() []string {
	return append([]string{}, c.attachments...)
}

// AddAttachments appends one or more URIs: one from the camera, several
// from the library. Order of arrival is display order.
func (c *Controller) AddAttachments(uris ...string) {
	c.attachments = append(c.attachments, uris...)
}

// RemoveAttachment deletes the entry at index, preserving the relative
// order of the rest.
func (c *Controller) RemoveAttachment(index int) error {
	if index < 0 || index >= len(c.attachments) {
		return errors.New("attachment index out of range")
	}
	c.attachments = append(c.attachments[:index], c.attachments[index+1:]...)
	return nil
}

// ==========================
// State
// ==========================

// Dirty compares current values against the baseline by value; the
// attachment lists must match element-wise, not by identity.
func (c *Controller) Dirty() bool {
	if c.name != c.baseline.name ||
		c.description != c.baseline.description ||
		c.location != c.baseline.location {
		return true
	}
	if len(c.attachments) != len(c.baseline.attachments) {
		return true
	}
	for i, a := range c.attachments {
		if a != c.baseline.attachments[i] {
			return true
		}
	}
	return false
}

func (c *Controller) State() State {
	if c.submitting {
		return Submitting
	}
	if c.Dirty() {
		return Dirty
	}
	return Pristine
}

// FieldErrors returns the field-level messages from the last failed
// validation, or nil.
func (c *Controller) FieldErrors() map[string]string {
	return c.fieldErrors
}

func (c *Controller) validate(name, description string) map[string]string {
	fields := map[string]string{}
	if name == "" {
		fields["name"] = "Name is required"
	}
	if description == "" {
		fields["description"] = "Description is required"
	}
	return fields
}

// ==========================
// Submit
// ==========================

// Submit sends the current values to the store: create when no asset id
// was supplied at construction, update otherwise. Name and description are
// trimmed; location goes verbatim; the attachment list goes in full.
//
// On create success the controller resets to a blank pristine form and
// returns the generated id (navigation is the caller's job). On update
// success the submitted values become the new baseline. On failure the
// edits are preserved and the form drops back to Dirty.
func (c *Controller) Submit(ctx context.Context) (string, error) {
	if c.submitting {
		return "", ErrSubmitInFlight
	}

	name := strings.TrimSpace(c.name)
	description := strings.TrimSpace(c.description)

	if fields := c.validate(name, description); len(fields) > 0 {
		c.fieldErrors = fields
		return "", ErrValidation
	}
	c.fieldErrors = nil

	if c.assetID != "" && !c.Dirty() {
		return "", ErrNotDirty
	}

	location := c.location
	attachments := append([]string{}, c.attachments...)

	c.submitting = true
	defer func() { c.submitting = false }()

	fields := models.AssetFields{
		Name:        &name,
		Description: &description,
		Location:    &location,
		Attachments: attachments,
	}

	if c.assetID == "" {
		asset, err := c.store.CreateAsset(ctx, fields)
		if err != nil {
			return "", err
		}
		c.load(snapshot{})
		return asset.ID, nil
	}

	if _, err := c.store.UpdateAsset(ctx, c.assetID, fields); err != nil {
		return "", err
	}
	c.load(snapshot{
		name:        name,
		description: description,
		location:    location,
		attachments: attachments,
	})
	return c.assetID, nil
}
