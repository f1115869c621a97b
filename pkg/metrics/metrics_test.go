package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordLinkRun(t *testing.T) {
	before := testutil.ToFloat64(LinkRunsTotal.WithLabelValues("completed"))
	linksBefore := testutil.ToFloat64(LinksCreatedTotal)
	evaluatedBefore := testutil.ToFloat64(ParksEvaluatedTotal)

	RecordLinkRun("completed", 1.5, 3, []float64{0.7, 0.96})

	assert.Equal(t, before+1, testutil.ToFloat64(LinkRunsTotal.WithLabelValues("completed")))
	assert.Equal(t, linksBefore+2, testutil.ToFloat64(LinksCreatedTotal))
	assert.Equal(t, evaluatedBefore+3, testutil.ToFloat64(ParksEvaluatedTotal))
}

func TestRecordKafkaPublish(t *testing.T) {
	before := testutil.ToFloat64(KafkaMessagesPublished.WithLabelValues("park-link-events", "success"))
	RecordKafkaPublish("park-link-events", "success", 4)
	assert.Equal(t, before+4, testutil.ToFloat64(KafkaMessagesPublished.WithLabelValues("park-link-events", "success")))
}
