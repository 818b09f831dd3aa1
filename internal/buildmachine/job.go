package buildmachine

import (
	"fmt"

	"github.com/google/uuid"
)

// Job describes one build-and-deploy request.
type Job struct {
	ProjectID uuid.UUID `json:"project_id" binding:"required"`

	// Folder locates the archive in the artifact store.
	Folder string `json:"folder" binding:"required"`

	// ProjectName is the infra-side project name used by analyze and
	// getenv. Region defaults to eu-central-1.
	ProjectName string `json:"project_name" binding:"required"`
	Region      string `json:"region"`

	// DatabaseName, when set, renames the provisioned database in the
	// generated infra config before deploying.
	DatabaseName string `json:"database_name"`

	// BearerToken authenticates the deployment callback to the core
	// API.
	BearerToken string `json:"-"`
}

// Validate fills defaults and rejects unusable jobs.
func (j *Job) Validate() error {
	if j.ProjectID == uuid.Nil {
		return fmt.Errorf("project_id is required")
	}
	if j.Folder == "" {
		return fmt.Errorf("folder is required")
	}
	if j.ProjectName == "" {
		return fmt.Errorf("project_name is required")
	}
	if j.Region == "" {
		j.Region = "eu-central-1"
	}
	return nil
}

// Outcome reports what a finished deploy produced.
type Outcome struct {
	DeploymentURL  string `json:"deployment_url"`
	DatabaseURI    string `json:"database_uri,omitempty"`
	DatabaseName   string `json:"database_name,omitempty"`
	InfraProjectID string `json:"infra_project_id,omitempty"`
	Region         string `json:"region"`
}

// StepError reports which build step failed and why.
type StepError struct {
	Step    string
	Message string
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Step, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Step, e.Message)
}

func (e *StepError) Unwrap() error { return e.Err }
