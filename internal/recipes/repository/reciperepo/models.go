package reciperepo

import "errors"

var (
	ErrNotFound    = errors.New("recipe not found")
	ErrTagNotFound = errors.New("tag not found")
)

type TagAssignment int

const (
	AssignmentAll TagAssignment = iota
	AssignmentAssigned
	AssignmentUnassigned
)

type ListRecipesRequest struct {
	UserID int64
	TagIDs []int64
}

type ListTagsRequest struct {
	UserID   int64
	Assigned TagAssignment
}
