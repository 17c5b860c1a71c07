// Package pipeline runs one project end to end: load requirements, generate
// images, emit variants into the output tree.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"assetgen/internal/domain"
)

// RequirementDoc is the on-disk requirement set for one project.
type RequirementDoc struct {
	BusinessType string                    `json:"business_type"`
	Requirements []domain.ImageRequirement `json:"requirements"`
}

// RequirementSource loads the requirement set for a project. Requirement
// analysis itself happens upstream; the pipeline consumes its output.
type RequirementSource interface {
	Load(ctx context.Context, project domain.ProjectSpec) (*RequirementDoc, error)
}

// FileSource reads requirement documents from the filesystem. A project id
// may be a directory containing requirements.json, a direct path to a JSON
// file, or a name resolved under the configured root.
type FileSource struct {
	root string
}

// NewFileSource creates a source rooted at dir.
func NewFileSource(root string) *FileSource {
	return &FileSource{root: root}
}

// Load implements RequirementSource.
func (s *FileSource) Load(ctx context.Context, project domain.ProjectSpec) (*RequirementDoc, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.resolve(project.ProjectID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: read requirements for %q: %w", project.ProjectID, err)
	}
	var doc RequirementDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pipeline: parse requirements for %q: %w", project.ProjectID, err)
	}
	if len(doc.Requirements) == 0 {
		return nil, fmt.Errorf("pipeline: project %q has no requirements", project.ProjectID)
	}
	return &doc, nil
}

func (s *FileSource) resolve(projectID string) (string, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return "", fmt.Errorf("pipeline: project id is required")
	}
	candidate := projectID
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(s.root, filepath.FromSlash(projectID))
	}
	info, err := os.Stat(candidate)
	if err != nil {
		return "", fmt.Errorf("pipeline: locate project %q: %w", projectID, err)
	}
	if info.IsDir() {
		return filepath.Join(candidate, "requirements.json"), nil
	}
	return candidate, nil
}
