package service

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassificationOpenAPISpec_Operations(t *testing.T) {
	ids := ClassificationOpenAPISpec().OperationIDs()
	sort.Strings(ids)

	assert.Equal(t, []string{
		"generateCarePlan",
		"getICFCategories",
		"getICFChapters",
		"getICFCodeInfo",
		"getICFQualifiers",
		"getRelatedCodes",
		"listEnvironmentalFactors",
		"mapAssessmentToICF",
		"searchICF",
		"suggestInterventions",
		"trackProgress",
	}, ids)
}

func TestClassificationOpenAPISpec_Registered(t *testing.T) {
	specs := GetAllOpenAPISpecs()
	require.Contains(t, specs, "classification")
	assert.NotEmpty(t, specs["classification"].ResponseTypes)
}

func TestClassificationOpenAPISpec_PathParameters(t *testing.T) {
	for path, item := range ClassificationOpenAPISpec().Paths {
		for _, op := range []*OperationSpec{item.GET, item.POST} {
			if op == nil {
				continue
			}
			for _, p := range op.Parameters {
				if p.In == "path" {
					assert.Contains(t, path, "{"+p.Name+"}", op.OperationID)
					assert.True(t, p.Required, op.OperationID)
				}
			}
		}
	}
}
