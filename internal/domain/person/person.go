package person

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Relationship types as stored on graph edges.
const (
	RelParentOf  = "PARENT_OF"
	RelMarriedTo = "MARRIED_TO"
	RelSiblingOf = "SIBLING_OF"
)

var (
	ErrNotFound = errors.New("person not found")
	ErrExists   = errors.New("person already exists")
	ErrSelfLink = errors.New("a person cannot be linked to themself")
)

type Person struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	BirthDate       string `json:"birth_date"`
	Gender          string `json:"gender"`
	CreatedByUserID string `json:"created_by_user_id"`
}

// Relation is one outgoing edge from a person.
type Relation struct {
	Type     string `json:"type"`
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
}

type CreatePersonRequest struct {
	ID        string `json:"id" binding:"omitempty,max=64"`
	Name      string `json:"name" binding:"required,min=1,max=200"`
	BirthDate string `json:"birth_date" binding:"required,datetime=2006-01-02"`
	Gender    string `json:"gender" binding:"required,oneof=male female other"`
}

type LinkParentRequest struct {
	ParentID string `json:"parent_id" binding:"required"`
	ChildID  string `json:"child_id" binding:"required"`
}

// LinkPairRequest is the body for symmetric relationships (marriage, siblings).
type LinkPairRequest struct {
	Person1ID string `json:"person1_id" binding:"required"`
	Person2ID string `json:"person2_id" binding:"required"`
}

// NewFromCreateRequest builds the node to insert. The id is the client's
// when supplied, otherwise a fresh UUID.
func NewFromCreateRequest(req CreatePersonRequest, createdBy string) Person {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	return Person{
		ID:              id,
		Name:            strings.TrimSpace(req.Name),
		BirthDate:       req.BirthDate,
		Gender:          req.Gender,
		CreatedByUserID: createdBy,
	}
}
