package buildmachine

import "regexp"

// All output-scraping patterns for the infra CLI live here. The CLI has
// no machine-readable output mode, so deploy URLs, project IDs and
// database URIs are pulled out of its human-oriented logs.
var (
	// Production deploy URLs are preferred; the dev cluster pattern is
	// the fallback when the CLI reports only a preview endpoint.
	deployURLPattern    = regexp.MustCompile(`https://[a-zA-Z0-9-]+\.eu-central-1\.cloud\.genez\.io`)
	devDeployURLPattern = regexp.MustCompile(`https://[a-zA-Z0-9-]+\.dev-fkt\.cloud\.genez\.io`)

	// Infra project IDs appear in dashboard links in the deploy output.
	infraProjectIDPattern = regexp.MustCompile(`https://app\.genez\.io/project/([a-f0-9-]+)/`)

	// Connection strings inside the exported env file.
	databaseURIPattern = regexp.MustCompile(`(mongodb\+srv://[^\s]+|postgresql://[^\s]+)`)

	// genezio.yaml rewrite targets: the declared database name and the
	// interpolation referencing it.
	yamlDatabaseNamePattern = regexp.MustCompile(`(services:\s+databases:\s+- name:\s*)[^\n]+`)
	yamlDatabaseURIPattern  = regexp.MustCompile(`(\$\{\{services\.databases\.)[^.]+(\.uri\}\})`)
)

// extractDeployURL returns the deployed service URL from deploy output,
// preferring the production cluster.
func extractDeployURL(output string) string {
	if m := deployURLPattern.FindString(output); m != "" {
		return m
	}
	return devDeployURLPattern.FindString(output)
}

// extractInfraProjectID returns the infra-side project ID, or "".
func extractInfraProjectID(output string) string {
	m := infraProjectIDPattern.FindStringSubmatch(output)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// extractDatabaseURI returns the first connection string in the env
// export, or "".
func extractDatabaseURI(envFile string) string {
	return databaseURIPattern.FindString(envFile)
}

// rewriteDatabaseName renames the declared database in genezio.yaml and
// fixes up the URI interpolation to match.
func rewriteDatabaseName(yaml, dbName string) string {
	out := yamlDatabaseNamePattern.ReplaceAllString(yaml, "${1}"+dbName)
	out = yamlDatabaseURIPattern.ReplaceAllString(out, "${1}"+dbName+"${2}")
	return out
}
