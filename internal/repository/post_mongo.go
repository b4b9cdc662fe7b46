package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/d60-Lab/zenith-cms/internal/model"
)

// BlogsCollection 沿用旧版部署的集合名
const BlogsCollection = "blogs"

// postDocument 是文章在 MongoDB 中的形状；创建时间字段名为 date
type postDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Category  string             `bson:"category"`
	Author    string             `bson:"author"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"date"`
	UpdatedAt *time.Time         `bson:"updatedAt"`
}

func (d *postDocument) toModel() *model.Post {
	p := &model.Post{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Category:  d.Category,
		Author:    d.Author,
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.UpdatedAt != nil {
		t := d.UpdatedAt.UTC()
		p.UpdatedAt = &t
	}
	return p
}

type mongoPostRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// NewMongoPostRepository 连接 MongoDB 并返回文章仓储
func NewMongoPostRepository(ctx context.Context, uri, database string) (PostRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	coll := client.Database(database).Collection(BlogsCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &mongoPostRepository{client: client, coll: coll}, nil
}

func (r *mongoPostRepository) Insert(ctx context.Context, post *model.Post) (string, error) {
	doc := postDocument{
		ID:        primitive.NewObjectID(),
		Title:     post.Title,
		Category:  post.Category,
		Author:    post.Author,
		Content:   post.Content,
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	post.ID = doc.ID.Hex()
	return post.ID, nil
}

// FindAll ObjectID 单调递增，用作同一时间戳下的插入顺序
func (r *mongoPostRepository) FindAll(ctx context.Context) ([]*model.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	res := make([]*model.Post, 0)
	for cur.Next(ctx) {
		var doc postDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		res = append(res, doc.toModel())
	}
	return res, cur.Err()
}

func (r *mongoPostRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc postDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

func (r *mongoPostRepository) UpdateFields(ctx context.Context, id string, fields model.PostFields) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	set := bson.M{"updatedAt": fields.UpdatedAt}
	if fields.Title != nil {
		set["title"] = *fields.Title
	}
	if fields.Category != nil {
		set["category"] = *fields.Category
	}
	if fields.Author != nil {
		set["author"] = *fields.Author
	}
	if fields.Content != nil {
		set["content"] = *fields.Content
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoPostRepository) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoPostRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
