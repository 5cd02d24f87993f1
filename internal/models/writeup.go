package models

import (
	"time"

	"gorm.io/gorm"
)

// Write-up kinds.
const (
	WriteUpArticle      = "A"
	WriteUpBook         = "B"
	WriteUpMagazine     = "M"
	WriteUpLiveWriting  = "L"
	WriteUpGroupWriting = "G"
)

// WriteUp is any creation published on the platform. The owner is an actor
// pair: an individual user or a publication.
type WriteUp struct {
	gorm.Model  `json:"-"`
	ID          uint   `json:"id" gorm:"primaryKey"`
	UUID        string `json:"uuid" gorm:"uniqueIndex;size:36"`
	Title       string `json:"title" gorm:"size:250"`
	Kind        string `json:"kind" gorm:"size:1"`
	Description string `json:"description"`
	OwnerType   string `json:"owner_type" gorm:"size:15;index:idx_write_up_owner"`
	OwnerID     uint   `json:"owner_id" gorm:"index:idx_write_up_owner"`
	UpVotes     int64  `json:"up_votes" gorm:"default:0"`
	DownVotes   int64  `json:"down_votes" gorm:"default:0"`
}

// OwnerActorRef reports the owner as an actor reference pair.
func (w *WriteUp) OwnerActorRef() (string, uint) {
	return w.OwnerType, w.OwnerID
}

// WriteUpContributor grants write-up level permission codes to a publication
// contributor, mirroring ContributorList at write-up granularity.
type WriteUpContributor struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	WriteUpID     uint         `json:"write_up_id" gorm:"index;uniqueIndex:idx_write_up_contributor"`
	ContributorID uint         `json:"contributor_id" gorm:"index;uniqueIndex:idx_write_up_contributor"`
	IsOwner       bool         `json:"is_owner" gorm:"default:false"`
	WriteUp       *WriteUp     `json:"-" gorm:"foreignKey:WriteUpID"`
	Contributor   *User        `json:"contributor,omitempty" gorm:"foreignKey:ContributorID"`
	Permissions   []Permission `json:"permissions,omitempty" gorm:"many2many:write_up_contributor_permissions;"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Tag types. Primary tags are seeded by the developer and at least one is
// required on a write-up or publication; secondary tags come from users.
const (
	TagPrimary   = "P"
	TagSecondary = "S"
)

type Tag struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:30;uniqueIndex:idx_tag_name_type"`
	TagType   string    `json:"tag_type" gorm:"size:1;uniqueIndex:idx_tag_name_type"`
	CreatedAt time.Time `json:"created_at"`
}

type CreateWriteUpRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=250"`
	Kind        string `json:"kind" validate:"required,oneof=A B M L G"`
	Description string `json:"description" validate:"max=2000"`
}
