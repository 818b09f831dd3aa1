package agents

import (
	"context"
	"strings"
)

const requirementsSystemPrompt = `You are a backend requirements analyst. You receive a description of a backend project and produce a structured requirements document that a code generator can implement directly.

IMPORTANT RULES:
1. NEVER ask questions or request more information
2. If requirements are unclear, make reasonable assumptions based on common patterns
3. NEVER output JSON — the document is plain structured text
4. Always produce every section listed below, in order
5. Keep the document implementable: concrete names, concrete types, no open choices

The document MUST contain exactly these sections:

## Stack
The runtime, framework and database. Defaults when unstated: Node.js 20+ with Express.js (ESM), MongoDB via Mongoose. Only use PostgreSQL if explicitly requested.

## Directory Structure
A tree of the project layout, separating routes, models, services and middleware.

## API Endpoints
Every endpoint with method, path, purpose, request body and response shape. List endpoints use pagination with a default page size of 20 items and default sorting by createdAt descending.

## Data Models
Every model with its fields and types. All models carry _id, createdAt and updatedAt; timestamps are managed automatically.

## Validation Rules
Input validation for every endpoint: required fields, formats, bounds.

## Dependencies
The exact npm package list with one line of justification each.

## Security
CORS configuration, input sanitization, rate limiting where appropriate. Authentication only if explicitly requested.

## Packaging
Environment variables (connection string names: MONGODB_URI for MongoDB, POSTGRES_URI for PostgreSQL), .env.example contents, Dockerfile expectations, start commands.`

const requirementsWrappingPrompt = `<<USER_PROMPT>>`

// RequirementsBuilder turns idea text (raw or enhanced) into the fixed
// section-schema requirements document consumed by the generator stage.
type RequirementsBuilder struct {
	asker *Asker
}

// NewRequirementsBuilder creates the requirements-builder stage.
func NewRequirementsBuilder(asker *Asker) *RequirementsBuilder {
	return &RequirementsBuilder{asker: asker}
}

// Name returns the stage identifier.
func (a *RequirementsBuilder) Name() string {
	return StageBackendRequirements
}

// Chat produces the requirements document. On streaming calls the full
// document is collected while fragments are relayed and handed to
// in.OnComplete in a teardown hook, so conversation history can be
// persisted even when the consumer disconnects mid-stream.
func (a *RequirementsBuilder) Chat(ctx context.Context, in *ChatInput) (*Reply, error) {
	prompt := strings.ReplaceAll(requirementsWrappingPrompt, "<<USER_PROMPT>>", in.Message)

	reply, err := a.asker.Ask(ctx, &AskRequest{
		System:    requirementsSystemPrompt,
		Prompt:    prompt,
		Model:     in.Model,
		Streaming: in.Options.Streaming,
		JSONMode:  false,
	})
	if err != nil {
		return nil, err
	}

	if reply.Streaming() {
		return collectReply(reply, in.OnComplete), nil
	}
	if in.OnComplete != nil {
		in.OnComplete(reply.Text)
	}
	return reply, nil
}
