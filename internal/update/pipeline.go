// Package update applies authorized edits to financial fields and records
// each one as accepted evidence.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sells-group/provenance-cli/internal/model"
	"github.com/sells-group/provenance-cli/internal/provenance"
)

// Evidence written for an owner edit.
const (
	EditSourceType = model.SourceUserInputVerified
	EditConfidence = 70
)

// Writer is the write half of the evidence store.
type Writer interface {
	UpdateVehicleField(ctx context.Context, id string, field model.FieldName, value decimal.Decimal) error
	InsertFieldEvidence(ctx context.Context, ev *model.FieldEvidence) error
}

// Resolver resolves the provenance an edit is checked against.
type Resolver interface {
	Resolve(ctx context.Context, entityID string, field model.FieldName, value decimal.NullDecimal, rc provenance.ResolveContext) (*model.Provenance, error)
}

// Result is the outcome of an edit.
type Result struct {
	Provenance *model.Provenance `json:"provenance"`
	EvidenceID string            `json:"evidence_id,omitempty"`
	// Warnings report a field update whose evidence trail could not be written.
	Warnings []string `json:"warnings,omitempty"`
}

// Pipeline applies edits.
type Pipeline struct {
	store    Writer
	resolver Resolver
	now      func() time.Time
}

// New creates a Pipeline.
func New(st Writer, resolver Resolver) *Pipeline {
	return &Pipeline{store: st, resolver: resolver, now: func() time.Time { return time.Now().UTC() }}
}

type editContext struct {
	ActorID       string `json:"actor_id"`
	ActorName     string `json:"actor_name,omitempty"`
	PreviousValue string `json:"previous_value,omitempty"`
	PreviousBy    string `json:"previous_source,omitempty"`
	EditedAt      string `json:"edited_at"`
}

// ApplyEdit sets field on entityID to value on behalf of actor. The actor must
// be allowed to edit the field's current provenance; otherwise the current
// provenance is returned with model.ErrPermissionDenied and nothing is
// written. Once authorized, the update and the evidence append run to
// completion even if ctx is cancelled.
func (p *Pipeline) ApplyEdit(ctx context.Context, entityID string, field model.FieldName, value decimal.Decimal, actor model.Actor) (*Result, error) {
	if !field.Valid() {
		return nil, eris.Errorf("update: unknown field %q", field)
	}
	if !value.IsPositive() {
		return nil, eris.Errorf("update: %s must be positive, got %s", field, value)
	}
	log := zap.L().With(
		zap.String("entity_id", entityID),
		zap.String("field", string(field)),
		zap.String("actor", actor.ID),
	)

	rc := provenance.ResolveContext{Actor: actor}
	prior, err := p.resolver.Resolve(ctx, entityID, field, decimal.NullDecimal{}, rc)
	if err != nil {
		return nil, eris.Wrap(err, "update: resolve current provenance")
	}
	if !prior.CanEdit {
		log.Info("update: edit denied", zap.String("inserted_by", prior.InsertedBy))
		return &Result{Provenance: prior}, eris.Wrapf(model.ErrPermissionDenied, "update: %s may not edit %s", actor.ID, field)
	}

	wctx := context.WithoutCancel(ctx)
	now := p.now()
	if err := p.store.UpdateVehicleField(wctx, entityID, field, value); err != nil {
		return nil, eris.Wrap(err, "update: set field")
	}

	res := &Result{}
	ev := &model.FieldEvidence{
		ID:                uuid.New().String(),
		EntityID:          entityID,
		FieldName:         field,
		ProposedValue:     value,
		SourceType:        EditSourceType,
		SourceConfidence:  EditConfidence,
		ExtractionContext: describe(actor, prior, now),
		Status:            model.EvidenceAccepted,
		CreatedBy:         actor.ID,
		CreatedAt:         now,
	}
	if err := p.store.InsertFieldEvidence(wctx, ev); err != nil {
		// The field now holds a value its evidence trail does not show. The
		// next resolution re-derives from the evidence that exists.
		log.Warn("update: evidence append failed after field update", zap.Error(err))
		res.Warnings = append(res.Warnings, "field updated but evidence was not recorded: "+err.Error())
	} else {
		res.EvidenceID = ev.ID
	}

	cur, err := p.resolver.Resolve(wctx, entityID, field, decimal.NewNullDecimal(value), rc)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, eris.Wrap(err, "update: re-resolve")
		}
		log.Warn("update: re-resolve failed", zap.Error(err))
		res.Warnings = append(res.Warnings, "provenance could not be refreshed: "+err.Error())
		cur = prior
	}
	res.Provenance = cur

	log.Info("update: edit applied", zap.String("value", value.String()), zap.Int("warnings", len(res.Warnings)))
	return res, nil
}

func describe(actor model.Actor, prior *model.Provenance, at time.Time) string {
	c := editContext{
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		PreviousBy: string(prior.SourceKind),
		EditedAt:   at.Format(time.RFC3339),
	}
	if prior.Value.Valid {
		c.PreviousValue = prior.Value.Decimal.String()
	}
	b, err := json.Marshal(c)
	if err != nil {
		return "edited by " + actor.ID
	}
	return string(b)
}
