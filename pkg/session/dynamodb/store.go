// Package dynamodb provides a DynamoDB-backed session store for deployments
// where the serving process does not outlive a conversation.
package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	ddb "github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/kokoro-labs/animus/pkg/core"
	"github.com/kokoro-labs/animus/pkg/memory"
	"github.com/kokoro-labs/animus/pkg/session"
)

// maxStateBytes keeps a stored session comfortably under the DynamoDB
// 400 KB item limit.
const maxStateBytes = 350 * 1024

// Config holds the DynamoDB session store settings.
type Config struct {
	// TableName is the DynamoDB table. Required. The table's partition key
	// must be the string attribute "session_id", and its TTL attribute, if
	// enabled, "expires_at".
	TableName string

	// Region overrides the AWS region from the environment.
	Region string

	// Endpoint overrides the DynamoDB endpoint, for local testing.
	Endpoint string

	// TTL is how long a stored session stays readable. Default: 14 days.
	TTL time.Duration
}

// sessionItem is the stored row shape.
type sessionItem struct {
	SessionID string `dynamodbav:"session_id"`
	StateJSON string `dynamodbav:"state_json"`
	UpdatedAt int64  `dynamodbav:"updated_at"`
	ExpiresAt int64  `dynamodbav:"expires_at"`
}

// Store persists conversation state in a DynamoDB table.
type Store struct {
	client *ddb.Client
	table  string
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a DynamoDB session store.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.TableName == "" {
		return nil, core.NewAgentError("dynamodb.NewStore",
			fmt.Errorf("table name is required: %w", core.ErrConfig))
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, core.NewAgentError("dynamodb.NewStore",
			fmt.Errorf("%v: %w", err, core.ErrConfig))
	}

	var clientOpts []func(*ddb.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *ddb.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}

	return &Store{
		client: ddb.NewFromConfig(awsCfg, clientOpts...),
		table:  cfg.TableName,
		ttl:    cfg.TTL,
		now:    time.Now,
	}, nil
}

// Get implements session.Store.
func (s *Store) Get(ctx context.Context, sessionID string) (*memory.ConversationState, error) {
	key, err := attributevalue.MarshalMap(map[string]string{"session_id": sessionID})
	if err != nil {
		return nil, core.NewAgentError("Get",
			fmt.Errorf("session %q: %v: %w", sessionID, err, core.ErrPersistence))
	}

	out, err := s.client.GetItem(ctx, &ddb.GetItemInput{
		TableName: aws.String(s.table),
		Key:       key,
	})
	if err != nil {
		return nil, core.NewAgentError("Get",
			fmt.Errorf("session %q: %v: %w", sessionID, err, core.ErrPersistence))
	}
	if out.Item == nil {
		return nil, core.NewAgentError("Get",
			fmt.Errorf("session %q: %w", sessionID, core.ErrNotFound))
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, core.NewAgentError("Get",
			fmt.Errorf("session %q: %v: %w", sessionID, err, core.ErrPersistence))
	}
	if item.StateJSON == "" {
		return nil, core.NewAgentError("Get",
			fmt.Errorf("session %q: %w", sessionID, core.ErrNotFound))
	}

	var state memory.ConversationState
	if err := json.Unmarshal([]byte(item.StateJSON), &state); err != nil {
		return nil, core.NewAgentError("Get",
			fmt.Errorf("session %q: %v: %w", sessionID, err, core.ErrPersistence))
	}
	return &state, nil
}

// Put implements session.Store.
func (s *Store) Put(ctx context.Context, sessionID string, state *memory.ConversationState) error {
	state = session.FitSizeLimit(state, maxStateBytes)
	encoded, err := json.Marshal(state)
	if err != nil {
		return core.NewAgentError("Put",
			fmt.Errorf("session %q: %v: %w", sessionID, err, core.ErrPersistence))
	}

	now := s.now().Unix()
	item, err := attributevalue.MarshalMap(sessionItem{
		SessionID: sessionID,
		StateJSON: string(encoded),
		UpdatedAt: now,
		ExpiresAt: now + int64(s.ttl.Seconds()),
	})
	if err != nil {
		return core.NewAgentError("Put",
			fmt.Errorf("session %q: %v: %w", sessionID, err, core.ErrPersistence))
	}

	_, err = s.client.PutItem(ctx, &ddb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return core.NewAgentError("Put",
			fmt.Errorf("session %q: %v: %w", sessionID, err, core.ErrPersistence))
	}
	return nil
}

// Close implements session.Store.
func (s *Store) Close() error {
	return nil
}
