package ports

import (
	"context"

	"visit-route-service/internal/domain"
)

// FetchOptions describe a feature query.
type FetchOptions struct {
	Where string
	// DistinctField, when set, returns one feature per distinct value of
	// that field and only that field.
	DistinctField  string
	ReturnGeometry bool
}

// PushRequest adds new features and updates existing ones (matched by object id).
type PushRequest struct {
	Adds    []domain.Feature
	Updates []domain.Feature
}

// RemoveRequest deletes features by predicate or object id.
type RemoveRequest struct {
	Where     string
	ObjectIDs []int64
}

type EditOutcome struct {
	ObjectID int64
	Success  bool
	Error    string
}

// EditResult is the per-feature outcome of a push or remove.
type EditResult struct {
	Adds    []EditOutcome
	Updates []EditOutcome
	Deletes []EditOutcome
}

// Failed counts unsuccessful edits.
func (r *EditResult) Failed() int {
	n := 0
	for _, set := range [][]EditOutcome{r.Adds, r.Updates, r.Deletes} {
		for _, o := range set {
			if !o.Success {
				n++
			}
		}
	}
	return n
}

// Port: a boundary for reading and editing records on a remote feature service.
type FeatureClient interface {
	Fetch(ctx context.Context, url string, opts FetchOptions) ([]domain.Feature, error)
	Push(ctx context.Context, url string, req PushRequest) (*EditResult, error)
	Remove(ctx context.Context, url string, req RemoveRequest) (*EditResult, error)
}
