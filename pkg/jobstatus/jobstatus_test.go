package jobstatus

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parquetry/parquetry/pkg/errors"
)

type stubDynamo struct {
	inputs []*dynamodb.UpdateItemInput
	err    error
}

func (s *stubDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func stringAttr(t *testing.T, av types.AttributeValue) string {
	t.Helper()
	s, ok := av.(*types.AttributeValueMemberS)
	require.True(t, ok)
	return s.Value
}

func TestDynamoReporterWritesCompositeKey(t *testing.T) {
	stub := &stubDynamo{}
	r := newDynamoReporterWithAPI(stub, "job-status", zap.NewNop())

	require.NoError(t, r.Report(context.Background(), "abc123", StatusPending, ""))
	require.Len(t, stub.inputs, 1)

	in := stub.inputs[0]
	assert.Equal(t, "job-status", *in.TableName)
	assert.Equal(t, "JOB-abc123", stringAttr(t, in.Key["service"]))
	assert.Equal(t, "abc123", stringAttr(t, in.Key["serviceId"]))
	assert.Equal(t, "pending", stringAttr(t, in.ExpressionAttributeValues[":status"]))
	assert.Contains(t, *in.UpdateExpression, "SET #status = :status")
	assert.Contains(t, *in.UpdateExpression, "REMOVE #detail")
}

func TestDynamoReporterCarriesFailureDetail(t *testing.T) {
	stub := &stubDynamo{}
	r := newDynamoReporterWithAPI(stub, "job-status", zap.NewNop())

	require.NoError(t, r.Report(context.Background(), "abc123", StatusFailed, "upload denied"))
	require.Len(t, stub.inputs, 1)

	in := stub.inputs[0]
	assert.Equal(t, "failed", stringAttr(t, in.ExpressionAttributeValues[":status"]))
	assert.Equal(t, "upload denied", stringAttr(t, in.ExpressionAttributeValues[":detail"]))
	assert.NotContains(t, *in.UpdateExpression, "REMOVE")
}

func TestDynamoReporterWrapsClientErrors(t *testing.T) {
	stub := &stubDynamo{err: fmt.Errorf("throttled")}
	r := newDynamoReporterWithAPI(stub, "job-status", zap.NewNop())

	err := r.Report(context.Background(), "abc123", StatusSuccess, "")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeIO))
}

func TestNopReporter(t *testing.T) {
	assert.NoError(t, NopReporter{}.Report(context.Background(), "x", StatusSuccess, ""))
}
