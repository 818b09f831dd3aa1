package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageRequestsLabels(t *testing.T) {
	StageRequests.WithLabelValues("project_generator", "gpt-4o-mini", "ok").Inc()

	expected := strings.NewReader(`
# HELP ideaforge_stage_requests_total Chat stage invocations by stage, model and outcome.
# TYPE ideaforge_stage_requests_total counter
ideaforge_stage_requests_total{model="gpt-4o-mini",outcome="ok",stage="project_generator"} 1
`)
	require.NoError(t, testutil.CollectAndCompare(StageRequests, expected))
}

func TestBuildAttemptsCounts(t *testing.T) {
	before := testutil.ToFloat64(BuildAttempts.WithLabelValues("disk_full"))
	BuildAttempts.WithLabelValues("disk_full").Inc()
	after := testutil.ToFloat64(BuildAttempts.WithLabelValues("disk_full"))
	assert.Equal(t, before+1, after)
}
