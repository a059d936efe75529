// Package dynamo stores transcripts in a single DynamoDB table.
//
// Layout:
//
//	PK=VIDEO#<id>    SK=METADATA         GSI1PK=VIDEOS    GSI1SK=<created>#<id>
//	PK=VIDEO#<id>    SK=DIALOGUE#<seq>
//	PK=REQUEST#<id>  SK=METADATA         GSI1PK=REQUESTS  GSI1SK=<created>#<id>
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"interviewcast/internal/persona"
	"interviewcast/internal/script"
	"interviewcast/internal/transcript"
)

const (
	skMetadata  = "METADATA"
	gsiName     = "GSI1"
	gsiVideos   = "VIDEOS"
	gsiRequests = "REQUESTS"

	// DynamoDB caps a transaction at 100 items; a full interview stays well
	// under it.
	maxTransactItems = 100
)

// API is the subset of *dynamodb.Client the store calls.
type API interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

var _ transcript.Repository = (*Store)(nil)

type Store struct {
	client    API
	tableName string
}

func NewStore(client API, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

type videoItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"`
	GSI1SK       string `dynamodbav:"GSI1SK"`
	VideoID      string `dynamodbav:"videoId"`
	Title        string `dynamodbav:"title"`
	Topic        string `dynamodbav:"topic"`
	Description  string `dynamodbav:"description,omitempty"`
	Language     string `dynamodbav:"language"`
	Introduction string `dynamodbav:"introduction"`
	Conclusion   string `dynamodbav:"conclusion"`
	Interviewer  string `dynamodbav:"interviewerJson"`
	Candidate    string `dynamodbav:"candidateJson"`
	Metadata     string `dynamodbav:"metadataJson,omitempty"`
	Status       string `dynamodbav:"status"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

type dialogueItem struct {
	PK             string `dynamodbav:"PK"`
	SK             string `dynamodbav:"SK"`
	DialogueID     string `dynamodbav:"dialogueId"`
	VideoID        string `dynamodbav:"videoId"`
	Seq            int    `dynamodbav:"seq"`
	QuestionNumber int    `dynamodbav:"questionNumber"`
	Role           string `dynamodbav:"role"`
	Text           string `dynamodbav:"text"`
}

type requestItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	GSI1PK    string `dynamodbav:"GSI1PK"`
	GSI1SK    string `dynamodbav:"GSI1SK"`
	RequestID string `dynamodbav:"requestId"`
	Topic     string `dynamodbav:"topic"`
	Questions int    `dynamodbav:"questions"`
	Language  string `dynamodbav:"language"`
	Model     string `dynamodbav:"model,omitempty"`
	Provider  string `dynamodbav:"provider,omitempty"`
	Status    string `dynamodbav:"status"`
	VideoID   string `dynamodbav:"videoId,omitempty"`
	Error     string `dynamodbav:"errorMessage,omitempty"`
	Phase     string `dynamodbav:"phase,omitempty"`
	CreatedAt string `dynamodbav:"createdAt"`
}

func videoPK(id string) string   { return "VIDEO#" + id }
func requestPK(id string) string { return "REQUEST#" + id }
func dialogueSK(seq int) string  { return fmt.Sprintf("DIALOGUE#%04d", seq) }

func videoKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: videoPK(id)},
		"SK": &types.AttributeValueMemberS{Value: skMetadata},
	}
}

// SaveTranscript writes the video record and its dialogues in one
// transaction, so a failure leaves nothing behind and a conflicting id writes
// no dialogue.
func (s *Store) SaveTranscript(ctx context.Context, video transcript.Video, dialogues []transcript.Dialogue) error {
	if n := len(dialogues) + 1; n > maxTransactItems {
		return fmt.Errorf("transcript %s has %d items, transaction limit is %d", video.ID, n, maxTransactItems)
	}

	item, err := toVideoItem(video)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal video item: %w", err)
	}

	writes := make([]types.TransactWriteItem, 0, len(dialogues)+1)
	writes = append(writes, types.TransactWriteItem{Put: &types.Put{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}})
	for _, d := range dialogues {
		av, err := attributevalue.MarshalMap(dialogueItem{
			PK:             videoPK(video.ID),
			SK:             dialogueSK(d.Seq),
			DialogueID:     d.ID,
			VideoID:        video.ID,
			Seq:            d.Seq,
			QuestionNumber: d.QuestionNumber,
			Role:           string(d.Role),
			Text:           d.Text,
		})
		if err != nil {
			return fmt.Errorf("marshal dialogue %d: %w", d.Seq, err)
		}
		writes = append(writes, types.TransactWriteItem{Put: &types.Put{TableName: &s.tableName, Item: av}})
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: writes})
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) && len(canceled.CancellationReasons) > 0 &&
		aws.ToString(canceled.CancellationReasons[0].Code) == "ConditionalCheckFailed" {
		return fmt.Errorf("video %s already exists: %w", video.ID, err)
	}
	if err != nil {
		return fmt.Errorf("write transcript %s: %w", video.ID, err)
	}
	return nil
}

func (s *Store) GetVideo(ctx context.Context, id string) (*transcript.Video, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       videoKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	if out.Item == nil {
		return nil, transcript.ErrNotFound
	}

	var item videoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal video: %w", err)
	}
	return fromVideoItem(item)
}

func (s *Store) ListDialogues(ctx context.Context, videoID string) ([]transcript.Dialogue, error) {
	var out []transcript.Dialogue
	var startKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              &s.tableName,
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: videoPK(videoID)},
				":prefix": &types.AttributeValueMemberS{Value: "DIALOGUE#"},
			},
			ScanIndexForward:  aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query dialogues: %w", err)
		}

		var items []dialogueItem
		if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal dialogues: %w", err)
		}
		for _, it := range items {
			out = append(out, transcript.Dialogue{
				ID:             it.DialogueID,
				VideoID:        it.VideoID,
				Seq:            it.Seq,
				QuestionNumber: it.QuestionNumber,
				Role:           script.Role(it.Role),
				Text:           it.Text,
			})
		}

		if len(resp.LastEvaluatedKey) == 0 {
			return out, nil
		}
		startKey = resp.LastEvaluatedKey
	}
}

func (s *Store) ListVideos(ctx context.Context, limit int) ([]transcript.Video, error) {
	resp, err := s.queryIndex(ctx, gsiVideos, limit)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}

	var items []videoItem
	if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal videos: %w", err)
	}
	out := make([]transcript.Video, 0, len(items))
	for _, it := range items {
		v, err := fromVideoItem(it)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s *Store) UpdateVideo(ctx context.Context, id string, status transcript.VideoStatus, meta transcript.Metadata) error {
	metadata, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 videoKey(id),
		UpdateExpression:    aws.String("SET #status = :status, metadataJson = :meta"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":meta":   &types.AttributeValueMemberS{Value: string(metadata)},
		},
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return transcript.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update video: %w", err)
	}
	return nil
}

func (s *Store) SaveRequest(ctx context.Context, req transcript.GenerationRequest) error {
	created := req.CreatedAt.UTC().Format(time.RFC3339Nano)
	av, err := attributevalue.MarshalMap(requestItem{
		PK:        requestPK(req.ID),
		SK:        skMetadata,
		GSI1PK:    gsiRequests,
		GSI1SK:    created + "#" + req.ID,
		RequestID: req.ID,
		Topic:     req.Topic,
		Questions: req.Questions,
		Language:  req.Language,
		Model:     req.Model,
		Provider:  req.Provider,
		Status:    string(req.Status),
		VideoID:   req.VideoID,
		Error:     req.Error,
		Phase:     req.Phase,
		CreatedAt: created,
	})
	if err != nil {
		return fmt.Errorf("marshal request item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put request item: %w", err)
	}
	return nil
}

func (s *Store) ListRequests(ctx context.Context, limit int) ([]transcript.GenerationRequest, error) {
	resp, err := s.queryIndex(ctx, gsiRequests, limit)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}

	var items []requestItem
	if err := attributevalue.UnmarshalListOfMaps(resp.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal requests: %w", err)
	}
	out := make([]transcript.GenerationRequest, 0, len(items))
	for _, it := range items {
		created, _ := time.Parse(time.RFC3339Nano, it.CreatedAt)
		out = append(out, transcript.GenerationRequest{
			ID:        it.RequestID,
			Topic:     it.Topic,
			Questions: it.Questions,
			Language:  it.Language,
			Model:     it.Model,
			Provider:  it.Provider,
			Status:    transcript.RequestStatus(it.Status),
			VideoID:   it.VideoID,
			Error:     it.Error,
			Phase:     it.Phase,
			CreatedAt: created,
		})
	}
	return out, nil
}

// queryIndex lists one GSI1 partition newest first.
func (s *Store) queryIndex(ctx context.Context, partition string, limit int) (*dynamodb.QueryOutput, error) {
	return s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String(gsiName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: partition},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
}

func toVideoItem(v transcript.Video) (videoItem, error) {
	interviewer, err := json.Marshal(v.Interviewer)
	if err != nil {
		return videoItem{}, err
	}
	candidate, err := json.Marshal(v.Candidate)
	if err != nil {
		return videoItem{}, err
	}
	metadata, err := json.Marshal(v.Metadata)
	if err != nil {
		return videoItem{}, err
	}

	created := v.CreatedAt.UTC().Format(time.RFC3339Nano)
	return videoItem{
		PK:           videoPK(v.ID),
		SK:           skMetadata,
		GSI1PK:       gsiVideos,
		GSI1SK:       created + "#" + v.ID,
		VideoID:      v.ID,
		Title:        v.Title,
		Topic:        v.Topic,
		Description:  v.Description,
		Language:     v.Language,
		Introduction: v.Introduction,
		Conclusion:   v.Conclusion,
		Interviewer:  string(interviewer),
		Candidate:    string(candidate),
		Metadata:     string(metadata),
		Status:       string(v.Status),
		CreatedAt:    created,
	}, nil
}

func fromVideoItem(it videoItem) (*transcript.Video, error) {
	v := &transcript.Video{
		ID:           it.VideoID,
		Title:        it.Title,
		Topic:        it.Topic,
		Description:  it.Description,
		Language:     it.Language,
		Introduction: it.Introduction,
		Conclusion:   it.Conclusion,
		Status:       transcript.VideoStatus(it.Status),
	}
	created, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse createdAt for video %s: %w", it.VideoID, err)
	}
	v.CreatedAt = created

	if err := decodePersona(it.Interviewer, &v.Interviewer); err != nil {
		return nil, err
	}
	if err := decodePersona(it.Candidate, &v.Candidate); err != nil {
		return nil, err
	}
	if it.Metadata != "" {
		if err := json.Unmarshal([]byte(it.Metadata), &v.Metadata); err != nil {
			return nil, fmt.Errorf("decode video metadata: %w", err)
		}
	}
	return v, nil
}

func decodePersona(raw string, p *persona.Persona) error {
	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return fmt.Errorf("decode persona snapshot: %w", err)
	}
	return nil
}
