// Package jobstatus records conversion job lifecycle transitions in a
// DynamoDB status table so callers can poll job progress out of band.
package jobstatus

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/parquetry/parquetry/pkg/errors"
)

// Status is a job lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Reporter records a job's current status. Implementations must be safe
// for use from multiple goroutines.
type Reporter interface {
	Report(ctx context.Context, jobID string, status Status, detail string) error
}

// updateItemAPI is the slice of the DynamoDB client the reporter needs.
type updateItemAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DynamoReporter writes status transitions to a DynamoDB table keyed by
// service ("JOB-<id>") and serviceId (the raw job id).
type DynamoReporter struct {
	client updateItemAPI
	table  string
	logger *zap.Logger
}

// NewDynamoReporter builds a reporter from the default AWS credential
// chain.
func NewDynamoReporter(ctx context.Context, table, region string, logger *zap.Logger) (*DynamoReporter, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	return &DynamoReporter{
		client: dynamodb.NewFromConfig(awsCfg),
		table:  table,
		logger: logger,
	}, nil
}

// newDynamoReporterWithAPI wires a caller-supplied client, for tests.
func newDynamoReporterWithAPI(client updateItemAPI, table string, logger *zap.Logger) *DynamoReporter {
	return &DynamoReporter{client: client, table: table, logger: logger}
}

// Report upserts the job's status row. The detail column carries the
// failure message for failed jobs and is removed otherwise.
func (r *DynamoReporter) Report(ctx context.Context, jobID string, status Status, detail string) error {
	update := "SET #status = :status, #updatedAt = :updatedAt"
	names := map[string]string{
		"#status":    "status",
		"#updatedAt": "updatedAt",
	}
	values := map[string]types.AttributeValue{
		":status":    &types.AttributeValueMemberS{Value: string(status)},
		":updatedAt": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
	}

	if detail != "" {
		update += ", #detail = :detail"
		names["#detail"] = "detail"
		values[":detail"] = &types.AttributeValueMemberS{Value: detail}
	} else {
		update += " REMOVE #detail"
		names["#detail"] = "detail"
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"service":   &types.AttributeValueMemberS{Value: "JOB-" + jobID},
			"serviceId": &types.AttributeValueMemberS{Value: jobID},
		},
		UpdateExpression:          aws.String(update),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to update job status").
			WithDetail("job_id", jobID).
			WithDetail("status", string(status))
	}

	r.logger.Info("job status updated",
		zap.String("job_id", jobID),
		zap.String("status", string(status)))
	return nil
}

// NopReporter discards status transitions. Used when no status table is
// configured, such as one-shot CLI conversions.
type NopReporter struct{}

func (NopReporter) Report(context.Context, string, Status, string) error { return nil }
