package classroom

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-classroom/internal/apperr"
)

// CommentLists is the result of removing a comment from a topic.
type CommentLists struct {
	Doubt        []string `json:"doubt"`
	ResourceDump []string `json:"resourceDump"`
}

// cleanText normalizes user text to NFC and trims surrounding space.
func cleanText(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// AddComment posts a student's doubt or resource dump entry and returns the
// target list populated in list order.
func (s *Service) AddComment(ctx context.Context, identity, topicID string, list CommentList, text string) ([]Comment, error) {
	if !list.Valid() {
		return nil, apperr.BadRequest("Invalid comment type")
	}
	topic, _, err := s.topicGuard(ctx, identity, topicID, s.StudentAuth)
	if err != nil {
		return nil, err
	}
	text = cleanText(text)
	if text == "" {
		return nil, apperr.BadRequest("Text not found")
	}

	comment := Comment{
		ID:        NewID(),
		User:      identity,
		Topic:     topicID,
		Course:    topic.Course,
		Text:      text,
		CreatedAt: time.Now(),
	}

	var ids []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.store.CreateComment(gctx, comment)
		return err
	})
	g.Go(func() error {
		var err error
		ids, err = s.store.PushTopicComment(gctx, topicID, list, comment.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr(err, "Topic not found")
	}

	comments, err := s.store.GetComments(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.invalidateTopic(ctx, topicID)
	s.publish(Event{
		Type:     EventCommentCreated,
		CourseID: topic.Course,
		TopicID:  topicID,
		UserID:   identity,
		Data:     map[string]any{"commentId": comment.ID, "list": string(list), "text": text},
	})
	return comments, nil
}

// LikeComment adds identity to the comment's likes. Liking twice is an error.
func (s *Service) LikeComment(ctx context.Context, identity, commentID string) ([]string, error) {
	comment, _, err := s.commentGuard(ctx, identity, commentID, s.ClassroomAuth)
	if err != nil {
		return nil, err
	}

	likes, err := s.store.LikeComment(ctx, commentID, identity)
	switch {
	case errors.Is(err, ErrAlreadyLiked):
		return nil, apperr.BadRequest("Comment already liked")
	case err != nil:
		return nil, storeErr(err, "Comment not found")
	}

	s.afterCommentChange(ctx, comment, identity, EventCommentLiked, map[string]any{"commentId": commentID, "likes": len(likes)})
	return likes, nil
}

// UnlikeComment removes identity from the comment's likes. Unliking a comment
// that was never liked is an error.
func (s *Service) UnlikeComment(ctx context.Context, identity, commentID string) ([]string, error) {
	comment, _, err := s.commentGuard(ctx, identity, commentID, s.ClassroomAuth)
	if err != nil {
		return nil, err
	}

	likes, err := s.store.UnlikeComment(ctx, commentID, identity)
	switch {
	case errors.Is(err, ErrNotLiked):
		return nil, apperr.BadRequest("Comment not liked")
	case err != nil:
		return nil, storeErr(err, "Comment not found")
	}

	s.afterCommentChange(ctx, comment, identity, EventCommentUnliked, map[string]any{"commentId": commentID, "likes": len(likes)})
	return likes, nil
}

// ReplyToComment appends a reply and returns the whole thread.
func (s *Service) ReplyToComment(ctx context.Context, identity, commentID, text string) ([]Reply, error) {
	comment, _, err := s.commentGuard(ctx, identity, commentID, s.ClassroomAuth)
	if err != nil {
		return nil, err
	}
	text = cleanText(text)
	if text == "" {
		return nil, apperr.BadRequest("Text not found")
	}

	reply, err := s.store.AddReply(ctx, commentID, Reply{UserID: identity, Text: text, CreatedAt: time.Now()})
	if err != nil {
		return nil, storeErr(err, "Comment not found")
	}

	s.afterCommentChange(ctx, comment, identity, EventCommentReplied, map[string]any{"commentId": commentID, "text": text})
	return reply, nil
}

// DeleteComment removes the caller's own comment from a topic. The comment
// document and both topic lists are updated concurrently.
func (s *Service) DeleteComment(ctx context.Context, identity, topicID, commentID string) (*CommentLists, error) {
	topic, _, err := s.topicGuard(ctx, identity, topicID, s.StudentAuth)
	if err != nil {
		return nil, err
	}

	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, storeErr(err, "Comment not found")
	}
	if comment.Topic != topicID {
		return nil, apperr.BadRequest("Comment not found")
	}
	if comment.User != identity {
		return nil, apperr.Unauthorized("Not authorized to delete comment")
	}

	var updated *Topic
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.DeleteComment(gctx, commentID)
	})
	g.Go(func() error {
		var err error
		updated, err = s.store.PullTopicComment(gctx, topicID, commentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	s.invalidateTopic(ctx, topicID)
	s.publish(Event{
		Type:     EventCommentDeleted,
		CourseID: topic.Course,
		TopicID:  topicID,
		UserID:   identity,
		Data:     map[string]any{"commentId": commentID},
	})
	return &CommentLists{Doubt: updated.Doubt, ResourceDump: updated.ResourceDump}, nil
}

// AddDiscussion posts to the course discussion and returns it populated.
func (s *Service) AddDiscussion(ctx context.Context, identity, courseID, text string) ([]Comment, error) {
	if _, err := s.ClassroomAuth(ctx, identity, courseID); err != nil {
		return nil, err
	}
	text = cleanText(text)
	if text == "" {
		return nil, apperr.BadRequest("Text not found")
	}

	comment := Comment{
		ID:        NewID(),
		User:      identity,
		Course:    courseID,
		Text:      text,
		CreatedAt: time.Now(),
	}

	var ids []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.store.CreateComment(gctx, comment)
		return err
	})
	g.Go(func() error {
		var err error
		ids, err = s.store.PushDiscussion(gctx, courseID, comment.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeErr(err, "Course not found")
	}

	comments, err := s.store.GetComments(ctx, ids)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.publish(Event{
		Type:     EventCommentCreated,
		CourseID: courseID,
		UserID:   identity,
		Data:     map[string]any{"commentId": comment.ID, "list": "discussion"},
	})
	return comments, nil
}

// DeleteDiscussion removes the caller's own post from the course discussion
// and returns the remaining comment ids.
func (s *Service) DeleteDiscussion(ctx context.Context, identity, courseID, commentID string) ([]string, error) {
	if _, err := s.ClassroomAuth(ctx, identity, courseID); err != nil {
		return nil, err
	}

	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return nil, storeErr(err, "Comment not found")
	}
	if comment.Course != courseID || comment.Topic != "" {
		return nil, apperr.BadRequest("Comment not found")
	}
	if comment.User != identity {
		return nil, apperr.Unauthorized("Not authorized to delete comment")
	}

	var ids []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.store.DeleteComment(gctx, commentID)
	})
	g.Go(func() error {
		var err error
		ids, err = s.store.PullDiscussion(gctx, courseID, commentID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, apperr.Internal(err)
	}

	s.publish(Event{
		Type:     EventCommentDeleted,
		CourseID: courseID,
		UserID:   identity,
		Data:     map[string]any{"commentId": commentID, "list": "discussion"},
	})
	return ids, nil
}

func (s *Service) afterCommentChange(ctx context.Context, c *Comment, identity, eventType string, data map[string]any) {
	if c.Topic != "" {
		s.invalidateTopic(ctx, c.Topic)
	}
	s.publish(Event{
		Type:     eventType,
		CourseID: c.Course,
		TopicID:  c.Topic,
		UserID:   identity,
		Data:     data,
	})
}
