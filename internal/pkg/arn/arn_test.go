package arn_test

import (
	"testing"

	"orchestrate/runtime/internal/pkg/arn"

	"github.com/stretchr/testify/assert"
)

func TestExpand_QualifiesShortName(t *testing.T) {
	e := &arn.Expander{Region: "us-east-1", AccountID: "12345", Stage: "prod"}
	assert.Equal(t, "arn:aws:lambda:us-east-1:12345:function:chargeOrder-prod", e.Expand("chargeOrder"))
}

func TestExpand_PassesThroughAlreadyQualifiedARN(t *testing.T) {
	e := &arn.Expander{}
	assert.Equal(t, "arn:aws:lambda:us-east-1:12345:function:chargeOrder-prod",
		e.Expand("arn:aws:lambda:us-east-1:12345:function:chargeOrder-prod"))
}

func TestExpand_PanicsWhenConfigIncomplete(t *testing.T) {
	cases := []arn.Expander{
		{Region: "", AccountID: "12345", Stage: "prod"},
		{Region: "us-east-1", AccountID: "", Stage: "prod"},
		{Region: "us-east-1", AccountID: "12345", Stage: ""},
	}
	for _, e := range cases {
		e := e
		assert.Panics(t, func() { e.Expand("chargeOrder") })
	}
}
