// Package mongodb implements the survey backend over a managed document
// database using the official MongoDB driver.
package mongodb

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/perkloop/surveydata/backend"
	"github.com/perkloop/surveydata/model"
)

const (
	collSurveys   = "surveys"
	collResponses = "responses"
)

type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials the cluster, verifies it answers and prepares the compound
// (surveyId, userId) index backing completion checks.
func Connect(ctx context.Context, uri, dbName string) (*Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(20).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb.connect")
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, errors.Wrap(err, "mongodb.ping")
	}

	c := &Client{
		client: client,
		db:     client.Database(dbName),
	}

	_, err = c.db.Collection(collResponses).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "surveyId", Value: 1}, {Key: "userId", Value: 1}},
	})
	if err != nil {
		return nil, errors.Wrap(err, "mongodb.ensure_index")
	}
	return c, nil
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Client) Name() string {
	return "mongodb"
}

func (c *Client) CreateSurvey(ctx context.Context, s model.Survey) (string, error) {
	if s.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return "", errors.Wrap(err, "mongodb.new_id")
		}
		s.ID = id.String()
	}

	_, err := c.db.Collection(collSurveys).InsertOne(ctx, surveyDoc(s))
	if err != nil {
		return "", errors.Wrap(err, "mongodb.insert_survey")
	}
	return s.ID, nil
}

func (c *Client) GetAllSurveys(ctx context.Context) ([]model.Survey, error) {
	return c.findSurveys(ctx, bson.M{})
}

// GetActiveSurveys pushes the flag filter down and applies the date-interval
// check client-side, where start/end parsing matches every other backend.
func (c *Client) GetActiveSurveys(ctx context.Context) ([]model.Survey, error) {
	surveys, err := c.findSurveys(ctx, bson.M{"isActive": true})
	if err != nil {
		return nil, err
	}
	return backend.FilterActive(surveys, time.Now()), nil
}

func (c *Client) findSurveys(ctx context.Context, filter bson.M) ([]model.Survey, error) {
	cur, err := c.db.Collection(collSurveys).Find(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "mongodb.find_surveys")
	}
	defer cur.Close(ctx)

	surveys := []model.Survey{}
	for cur.Next(ctx) {
		var doc surveyRecord
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "mongodb.find_surveys.decode")
		}
		surveys = append(surveys, doc.model())
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, "mongodb.find_surveys.cursor")
	}
	return surveys, nil
}

func (c *Client) GetSurveyByID(ctx context.Context, id string) (model.Survey, error) {
	var doc surveyRecord
	err := c.db.Collection(collSurveys).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Survey{}, backend.ErrNotFound
	}
	if err != nil {
		return model.Survey{}, errors.Wrap(err, "mongodb.get_survey")
	}
	return doc.model(), nil
}

func (c *Client) UpdateSurvey(ctx context.Context, s model.Survey) error {
	_, err := c.db.Collection(collSurveys).ReplaceOne(ctx,
		bson.M{"_id": s.ID},
		surveyDoc(s),
		options.Replace().SetUpsert(true),
	)
	return errors.Wrap(err, "mongodb.update_survey")
}

func (c *Client) DeleteSurvey(ctx context.Context, id string) error {
	_, err := c.db.Collection(collSurveys).DeleteOne(ctx, bson.M{"_id": id})
	return errors.Wrap(err, "mongodb.delete_survey")
}

func (c *Client) SubmitResponse(ctx context.Context, r model.SurveyResponse) (string, error) {
	if r.ID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return "", errors.Wrap(err, "mongodb.new_id")
		}
		r.ID = id.String()
	}

	_, err := c.db.Collection(collResponses).InsertOne(ctx, responseDoc(r))
	if err != nil {
		return "", errors.Wrap(err, "mongodb.insert_response")
	}
	return r.ID, nil
}

func (c *Client) GetSurveyResponses(ctx context.Context, surveyID string) ([]model.SurveyResponse, error) {
	cur, err := c.db.Collection(collResponses).Find(ctx, bson.M{"surveyId": surveyID})
	if err != nil {
		return nil, errors.Wrap(err, "mongodb.find_responses")
	}
	defer cur.Close(ctx)

	responses := []model.SurveyResponse{}
	for cur.Next(ctx) {
		var doc responseRecord
		if err := cur.Decode(&doc); err != nil {
			return nil, errors.Wrap(err, "mongodb.find_responses.decode")
		}
		responses = append(responses, doc.model())
	}
	if err := cur.Err(); err != nil {
		return nil, errors.Wrap(err, "mongodb.find_responses.cursor")
	}
	return responses, nil
}

func (c *Client) HasUserCompletedSurvey(ctx context.Context, surveyID, userID string) (bool, error) {
	n, err := c.db.Collection(collResponses).CountDocuments(ctx,
		bson.M{"surveyId": surveyID, "userId": userID},
		options.Count().SetLimit(1),
	)
	if err != nil {
		return false, errors.Wrap(err, "mongodb.count_responses")
	}
	return n > 0, nil
}
