package agents

import (
	"context"
	"strings"
)

const generatorSystemPrompt = `You are a project generator assistant for Express.js backend projects using ESM (ECMAScript Modules).

# Important Rules
1. NEVER ask questions or request more information
2. If requirements are unclear, make reasonable assumptions based on common patterns
3. Always provide a complete, structured solution
4. Include all necessary components for a production-ready application
5. ALWAYS include Swagger/OpenAPI documentation via a swagger.yaml file
6. ALWAYS include a complete README.md
7. ALWAYS include a production-ready Dockerfile
8. ALWAYS use ESM syntax with the .mjs extension and named exports
9. NEVER use default exports
10. NEVER create a .env file (only .env.example)
11. ALWAYS include proper error handling, input validation, CORS configuration, HTTP status codes and logging

# Output Format
You are given a structured description of a project and you need to generate ONLY the JSON structure of the project with COMPLETE, WORKING implementations (no placeholders or comments).

The JSON structure should be in the following format:
{
    "structure": [
        {
            "type": "file|directory",
            "path": "./relative/path/to/item",
            "content": "actual content for files | null for directories"
        }
    ]
}

# Default Choices
## Database
- MongoDB is the DEFAULT choice if no database is specified
- Only use PostgreSQL if explicitly requested
- Connection strings:
  * MongoDB: process.env.MONGODB_URI (connect directly without additional options)
  * PostgreSQL: process.env.POSTGRES_URI
- DO NOT block server startup waiting for the database connection

## Data Handling
- Default pagination: 20 items per page
- Default sorting: createdAt descending
- Standard fields in all models: _id, createdAt, updatedAt (timestamps managed automatically)

# Project Requirements
## Required Files
- package.json with all necessary dependencies and start command
- .env.example (NEVER create .env)
- Dockerfile
- README.md with project description, features, prerequisites, environment variable setup, running instructions and API documentation access
- swagger.yaml with the complete OpenAPI 3.0 specification; mount the interactive docs at /api/docs using swagger-ui-express and serve the converted spec at /api/openapi.js

## Code Requirements
- Use 2 spaces for indentation
- ALWAYS use ESM import/export syntax with .mjs extensions in import statements
- NO require() or module.exports
- ABSOLUTELY NO COMMENTS OR PLACEHOLDERS
- Every function, middleware, route handler, service and model must have a complete implementation
- MUST use the dotenv package and load environment variables at the start of the application
- MUST include .gitignore covering node_modules/, .env, *.log, coverage/, dist/, build/

# Important Notes
- Generate complete, working code for every file
- NO TODO comments, NO placeholder implementations, NO empty function bodies, NO skeleton code`

const generatorWrappingPrompt = `<<USER_PROMPT>>`

// ProjectGenerator turns a requirements document into the strict-JSON
// file tree of a complete project. Runs in forced-JSON mode where the
// provider supports it.
type ProjectGenerator struct {
	asker *Asker
}

// NewProjectGenerator creates the project-generator stage.
func NewProjectGenerator(asker *Asker) *ProjectGenerator {
	return &ProjectGenerator{asker: asker}
}

// Name returns the stage identifier.
func (a *ProjectGenerator) Name() string {
	return StageProjectGenerator
}

// Chat generates the project file tree JSON.
func (a *ProjectGenerator) Chat(ctx context.Context, in *ChatInput) (*Reply, error) {
	prompt := strings.ReplaceAll(generatorWrappingPrompt, "<<USER_PROMPT>>", in.Message)

	reply, err := a.asker.Ask(ctx, &AskRequest{
		System:    generatorSystemPrompt,
		Prompt:    prompt,
		Model:     in.Model,
		Streaming: in.Options.Streaming,
		JSONMode:  true,
		MaxTokens: in.Options.MaxTokens,
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
