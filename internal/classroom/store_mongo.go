package classroom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	collCourses  = "courses"
	collTopics   = "topics"
	collTests    = "tests"
	collComments = "comments"
	collProgress = "course_progress"
)

// MongoStore is a MongoDB-backed Store. Every list mutation is a single
// update operator on one document.
type MongoStore struct {
	db *mongo.Database
}

// NewMongoStore creates a MongoDB-backed classroom store and ensures its indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	s := &MongoStore{db: db}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.db.Collection(collProgress).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}, {Key: "course", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create progress index: %w", err)
	}
	if _, err := s.db.Collection(collCourses).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "instructor", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create course index: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateCourse(ctx context.Context, c Course) (*Course, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.Topics = nonNil(c.Topics)
	c.Discussion = nonNil(c.Discussion)

	if _, err := s.db.Collection(collCourses).InsertOne(ctx, c); err != nil {
		return nil, fmt.Errorf("insert course: %w", err)
	}
	return &c, nil
}

func (s *MongoStore) GetCourse(ctx context.Context, id string) (*Course, error) {
	var c Course
	if err := s.findOne(ctx, collCourses, bson.M{"_id": id}, &c); err != nil {
		return nil, mongoNotFound(err, "course", id)
	}
	return &c, nil
}

func (s *MongoStore) GetCourses(ctx context.Context, ids []string) ([]Course, error) {
	var courses []Course
	if err := s.findMany(ctx, collCourses, bson.M{"_id": bson.M{"$in": ids}}, nil, &courses); err != nil {
		return nil, fmt.Errorf("find courses: %w", err)
	}
	return orderByID(ids, courses, func(c Course) string { return c.ID }), nil
}

func (s *MongoStore) ListCoursesByInstructor(ctx context.Context, userID string) ([]Course, error) {
	courses := []Course{}
	if err := s.findMany(ctx, collCourses, bson.M{"instructor": userID}, bson.D{{Key: "createdAt", Value: 1}}, &courses); err != nil {
		return nil, fmt.Errorf("find courses: %w", err)
	}
	return courses, nil
}

func (s *MongoStore) UpdateCourse(ctx context.Context, id string, name, description *string) (*Course, error) {
	if name == nil && description == nil {
		return s.GetCourse(ctx, id)
	}
	var c Course
	if err := s.updateOne(ctx, collCourses, bson.M{"_id": id}, bson.M{"$set": setFields(name, description)}, &c); err != nil {
		return nil, mongoNotFound(err, "course", id)
	}
	return &c, nil
}

func (s *MongoStore) PushCourseTopic(ctx context.Context, courseID, topicID string) error {
	var c Course
	if err := s.updateOne(ctx, collCourses, bson.M{"_id": courseID}, bson.M{"$push": bson.M{"topics": topicID}}, &c); err != nil {
		return mongoNotFound(err, "course", courseID)
	}
	return nil
}

func (s *MongoStore) PullCourseTopic(ctx context.Context, courseID, topicID string) error {
	var c Course
	if err := s.updateOne(ctx, collCourses, bson.M{"_id": courseID}, bson.M{"$pull": bson.M{"topics": topicID}}, &c); err != nil {
		return mongoNotFound(err, "course", courseID)
	}
	return nil
}

func (s *MongoStore) PushDiscussion(ctx context.Context, courseID, commentID string) ([]string, error) {
	var c Course
	if err := s.updateOne(ctx, collCourses, bson.M{"_id": courseID}, bson.M{"$push": bson.M{"discussion": commentID}}, &c); err != nil {
		return nil, mongoNotFound(err, "course", courseID)
	}
	return nonNil(c.Discussion), nil
}

func (s *MongoStore) PullDiscussion(ctx context.Context, courseID, commentID string) ([]string, error) {
	var c Course
	if err := s.updateOne(ctx, collCourses, bson.M{"_id": courseID}, bson.M{"$pull": bson.M{"discussion": commentID}}, &c); err != nil {
		return nil, mongoNotFound(err, "course", courseID)
	}
	return nonNil(c.Discussion), nil
}

func (s *MongoStore) CreateTopic(ctx context.Context, t Topic) (*Topic, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.CoreResources == nil {
		t.CoreResources = []ResourceItem{}
	}
	t.Doubt = nonNil(t.Doubt)
	t.ResourceDump = nonNil(t.ResourceDump)

	if _, err := s.db.Collection(collTopics).InsertOne(ctx, t); err != nil {
		return nil, fmt.Errorf("insert topic: %w", err)
	}
	return &t, nil
}

func (s *MongoStore) GetTopic(ctx context.Context, id string) (*Topic, error) {
	var t Topic
	if err := s.findOne(ctx, collTopics, bson.M{"_id": id}, &t); err != nil {
		return nil, mongoNotFound(err, "topic", id)
	}
	return &t, nil
}

func (s *MongoStore) GetTopics(ctx context.Context, ids []string) ([]Topic, error) {
	var topics []Topic
	if err := s.findMany(ctx, collTopics, bson.M{"_id": bson.M{"$in": ids}}, nil, &topics); err != nil {
		return nil, fmt.Errorf("find topics: %w", err)
	}
	return orderByID(ids, topics, func(t Topic) string { return t.ID }), nil
}

func (s *MongoStore) UpdateTopic(ctx context.Context, id string, name, description *string) (*Topic, error) {
	if name == nil && description == nil {
		return s.GetTopic(ctx, id)
	}
	var t Topic
	if err := s.updateOne(ctx, collTopics, bson.M{"_id": id}, bson.M{"$set": setFields(name, description)}, &t); err != nil {
		return nil, mongoNotFound(err, "topic", id)
	}
	return &t, nil
}

func (s *MongoStore) DeleteTopic(ctx context.Context, id string) error {
	return s.deleteOne(ctx, collTopics, "topic", id)
}

func (s *MongoStore) SetCoreResources(ctx context.Context, topicID string, items []ResourceItem) ([]ResourceItem, error) {
	var t Topic
	if err := s.updateOne(ctx, collTopics, bson.M{"_id": topicID}, bson.M{"$set": bson.M{"coreResources": items}}, &t); err != nil {
		return nil, mongoNotFound(err, "topic", topicID)
	}
	return t.CoreResources, nil
}

func (s *MongoStore) InsertCoreResource(ctx context.Context, topicID string, item ResourceItem, position int) error {
	push := bson.M{"$each": []ResourceItem{item}}
	if position >= 0 {
		// $position beyond the array length appends.
		push["$position"] = position
	}
	var t Topic
	if err := s.updateOne(ctx, collTopics, bson.M{"_id": topicID}, bson.M{"$push": bson.M{"coreResources": push}}, &t); err != nil {
		return mongoNotFound(err, "topic", topicID)
	}
	return nil
}

func (s *MongoStore) RemoveCoreResource(ctx context.Context, topicID, resourceID string) ([]ResourceItem, error) {
	var t Topic
	if err := s.updateOne(ctx, collTopics,
		bson.M{"_id": topicID},
		bson.M{"$pull": bson.M{"coreResources": bson.M{"_id": resourceID}}},
		&t,
	); err != nil {
		return nil, mongoNotFound(err, "topic", topicID)
	}
	if t.CoreResources == nil {
		t.CoreResources = []ResourceItem{}
	}
	return t.CoreResources, nil
}

func (s *MongoStore) PushTopicComment(ctx context.Context, topicID string, list CommentList, commentID string) ([]string, error) {
	if !list.Valid() {
		return nil, fmt.Errorf("unknown comment list %q", list)
	}
	var t Topic
	if err := s.updateOne(ctx, collTopics, bson.M{"_id": topicID}, bson.M{"$push": bson.M{string(list): commentID}}, &t); err != nil {
		return nil, mongoNotFound(err, "topic", topicID)
	}
	if list == ListDoubt {
		return nonNil(t.Doubt), nil
	}
	return nonNil(t.ResourceDump), nil
}

func (s *MongoStore) PullTopicComment(ctx context.Context, topicID, commentID string) (*Topic, error) {
	var t Topic
	if err := s.updateOne(ctx, collTopics,
		bson.M{"_id": topicID},
		bson.M{"$pull": bson.M{"doubt": commentID, "resourceDump": commentID}},
		&t,
	); err != nil {
		return nil, mongoNotFound(err, "topic", topicID)
	}
	t.Doubt = nonNil(t.Doubt)
	t.ResourceDump = nonNil(t.ResourceDump)
	return &t, nil
}

func (s *MongoStore) CreateTest(ctx context.Context, t Test) (*Test, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if t.ID == "" {
		t.ID = NewID()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.Questions == nil {
		t.Questions = []Question{}
	}

	if _, err := s.db.Collection(collTests).InsertOne(ctx, t); err != nil {
		return nil, fmt.Errorf("insert test: %w", err)
	}
	return &t, nil
}

func (s *MongoStore) GetTest(ctx context.Context, id string) (*Test, error) {
	var t Test
	if err := s.findOne(ctx, collTests, bson.M{"_id": id}, &t); err != nil {
		return nil, mongoNotFound(err, "test", id)
	}
	return &t, nil
}

func (s *MongoStore) DeleteTest(ctx context.Context, id string) error {
	return s.deleteOne(ctx, collTests, "test", id)
}

func (s *MongoStore) ListTestsBefore(ctx context.Context, before time.Time) ([]Test, error) {
	tests := []Test{}
	if err := s.findMany(ctx, collTests, bson.M{"createdAt": bson.M{"$lt": before}}, nil, &tests); err != nil {
		return nil, fmt.Errorf("find tests: %w", err)
	}
	return tests, nil
}

func (s *MongoStore) CreateComment(ctx context.Context, c Comment) (*Comment, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.Likes = nonNil(c.Likes)
	if c.Reply == nil {
		c.Reply = []Reply{}
	}

	if _, err := s.db.Collection(collComments).InsertOne(ctx, c); err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &c, nil
}

func (s *MongoStore) GetComment(ctx context.Context, id string) (*Comment, error) {
	var c Comment
	if err := s.findOne(ctx, collComments, bson.M{"_id": id}, &c); err != nil {
		return nil, mongoNotFound(err, "comment", id)
	}
	return &c, nil
}

func (s *MongoStore) GetComments(ctx context.Context, ids []string) ([]Comment, error) {
	var comments []Comment
	if err := s.findMany(ctx, collComments, bson.M{"_id": bson.M{"$in": ids}}, nil, &comments); err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	return orderByID(ids, comments, func(c Comment) string { return c.ID }), nil
}

func (s *MongoStore) DeleteComment(ctx context.Context, id string) error {
	return s.deleteOne(ctx, collComments, "comment", id)
}

func (s *MongoStore) LikeComment(ctx context.Context, id, userID string) ([]string, error) {
	var c Comment
	err := s.updateOne(ctx, collComments,
		bson.M{"_id": id, "likes": bson.M{"$ne": userID}},
		bson.M{"$push": bson.M{"likes": userID}},
		&c,
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.missingOr(ctx, collComments, "comment", id, ErrAlreadyLiked)
	}
	if err != nil {
		return nil, fmt.Errorf("like comment: %w", err)
	}
	return c.Likes, nil
}

func (s *MongoStore) UnlikeComment(ctx context.Context, id, userID string) ([]string, error) {
	var c Comment
	err := s.updateOne(ctx, collComments,
		bson.M{"_id": id, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
		&c,
	)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.missingOr(ctx, collComments, "comment", id, ErrNotLiked)
	}
	if err != nil {
		return nil, fmt.Errorf("unlike comment: %w", err)
	}
	return nonNil(c.Likes), nil
}

func (s *MongoStore) AddReply(ctx context.Context, id string, r Reply) ([]Reply, error) {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	var c Comment
	if err := s.updateOne(ctx, collComments, bson.M{"_id": id}, bson.M{"$push": bson.M{"reply": r}}, &c); err != nil {
		return nil, mongoNotFound(err, "comment", id)
	}
	return c.Reply, nil
}

func (s *MongoStore) ListCommentsBefore(ctx context.Context, before time.Time) ([]Comment, error) {
	comments := []Comment{}
	if err := s.findMany(ctx, collComments, bson.M{"createdAt": bson.M{"$lt": before}}, nil, &comments); err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}
	return comments, nil
}

func (s *MongoStore) CreateProgress(ctx context.Context, p CourseProgress) (*CourseProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if p.ID == "" {
		p.ID = NewID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.TopicStatus == nil {
		p.TopicStatus = map[string][]string{}
	}

	if _, err := s.db.Collection(collProgress).InsertOne(ctx, p); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrAlreadyEnrolled
		}
		return nil, fmt.Errorf("insert progress: %w", err)
	}
	return &p, nil
}

func (s *MongoStore) GetProgress(ctx context.Context, userID, courseID string) (*CourseProgress, error) {
	var p CourseProgress
	if err := s.findOne(ctx, collProgress, bson.M{"user": userID, "course": courseID}, &p); err != nil {
		return nil, mongoNotFound(err, "progress", userID+"/"+courseID)
	}
	return withStatus(&p), nil
}

func (s *MongoStore) ListProgressByUser(ctx context.Context, userID string) ([]CourseProgress, error) {
	out := []CourseProgress{}
	if err := s.findMany(ctx, collProgress, bson.M{"user": userID}, bson.D{{Key: "createdAt", Value: 1}}, &out); err != nil {
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return out, nil
}

func (s *MongoStore) ListProgressByCourse(ctx context.Context, courseID string) ([]CourseProgress, error) {
	out := []CourseProgress{}
	if err := s.findMany(ctx, collProgress, bson.M{"course": courseID}, bson.D{{Key: "createdAt", Value: 1}}, &out); err != nil {
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return out, nil
}

func (s *MongoStore) SetResourceStatus(ctx context.Context, userID, courseID, topicID, resourceID string, done bool) (*CourseProgress, error) {
	field := "topicStatus." + topicID
	filter := bson.M{"user": userID, "course": courseID}

	update := bson.M{"$addToSet": bson.M{field: resourceID}}
	if !done {
		update = bson.M{"$pull": bson.M{field: resourceID}}
	}

	var p CourseProgress
	if err := s.updateOne(ctx, collProgress, filter, update, &p); err != nil {
		return nil, mongoNotFound(err, "progress", userID+"/"+courseID)
	}
	if done || len(p.TopicStatus[topicID]) > 0 {
		return withStatus(&p), nil
	}

	emptyFilter := bson.M{"user": userID, "course": courseID, field: bson.M{"$size": 0}}
	err := s.updateOne(ctx, collProgress, emptyFilter, bson.M{"$unset": bson.M{field: ""}}, &p)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("unset topic status: %w", err)
	}
	return withStatus(&p), nil
}

func (s *MongoStore) findOne(ctx context.Context, coll string, filter bson.M, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()
	return s.db.Collection(coll).FindOne(ctx, filter).Decode(dst)
}

func (s *MongoStore) findMany(ctx context.Context, coll string, filter bson.M, sort bson.D, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	opts := options.Find()
	if sort != nil {
		opts.SetSort(sort)
	}
	cur, err := s.db.Collection(coll).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, dst)
}

// updateOne applies update to the first match and decodes the updated document into dst.
func (s *MongoStore) updateOne(ctx context.Context, coll string, filter, update bson.M, dst any) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return s.db.Collection(coll).FindOneAndUpdate(ctx, filter, update, opts).Decode(dst)
}

func (s *MongoStore) deleteOne(ctx context.Context, coll, noun, id string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	res, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s: %w", noun, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s %s: %w", noun, id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) missingOr(ctx context.Context, coll, noun, id string, cause error) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	n, err := s.db.Collection(coll).CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("count %s: %w", noun, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", noun, id, ErrNotFound)
	}
	return cause
}

func setFields(name, description *string) bson.M {
	set := bson.M{}
	if name != nil {
		set["name"] = *name
	}
	if description != nil {
		set["description"] = *description
	}
	return set
}

func withStatus(p *CourseProgress) *CourseProgress {
	if p.TopicStatus == nil {
		p.TopicStatus = map[string][]string{}
	}
	return p
}

func mongoNotFound(err error, noun, id string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s %s: %w", noun, id, ErrNotFound)
	}
	return fmt.Errorf("find %s: %w", noun, err)
}
