// Package models defines the persisted records of the service.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is one generated backend project and its deployment state.
// The archive lives in the artifact store under S3Folder; deployment
// fields stay empty until the build machine reports back.
type Project struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID string    `gorm:"index;not null" json:"user_id"`

	Idea     string `gorm:"type:text;not null" json:"idea"`
	Name     string `gorm:"index" json:"name"`
	IsPublic bool   `gorm:"default:false;index" json:"is_public"`

	// Requirements is the latest requirements document produced for
	// the project, persisted even when the stage streams.
	Requirements string `gorm:"type:text" json:"requirements,omitempty"`

	S3Folder     string `gorm:"index" json:"s3_folder"`
	PresignedURL string `gorm:"type:text" json:"presigned_url,omitempty"`

	DeploymentURL  string `json:"deployment_url,omitempty"`
	DatabaseURI    string `gorm:"type:text" json:"database_uri,omitempty"`
	DatabaseName   string `json:"database_name,omitempty"`
	InfraProjectID string `json:"infra_project_id,omitempty"`
	Region         string `json:"region,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the record ID and storage folder when absent.
func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.S3Folder == "" {
		p.S3Folder = p.ID.String()
	}
	return nil
}

// DeploymentUpdate carries the fields the build machine reports when a
// deploy finishes.
type DeploymentUpdate struct {
	DeploymentURL  string `json:"deployment_url"`
	DatabaseURI    string `json:"database_uri,omitempty"`
	DatabaseName   string `json:"database_name,omitempty"`
	InfraProjectID string `json:"infra_project_id,omitempty"`
	Region         string `json:"region,omitempty"`
}
