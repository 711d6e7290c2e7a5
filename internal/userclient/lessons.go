package userclient

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

type LessonStatus string

const (
	LessonActive    LessonStatus = "ACTIVE"
	LessonCompleted LessonStatus = "COMPLETED"
	LessonLocked    LessonStatus = "LOCKED"
)

type BlockType string

const (
	BlockText  BlockType = "TEXT"
	BlockImage BlockType = "IMAGE"
	BlockVideo BlockType = "VIDEO"
)

type Lesson struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	OrderIndex  int          `json:"orderIndex"`
	Status      LessonStatus `json:"lessonStatus"`
	Blocks      []Block      `json:"blocks,omitempty"`
}

type Block struct {
	ID         int64       `json:"id"`
	Type       BlockType   `json:"type"`
	OrderIndex int         `json:"orderIndex"`
	HasTest    bool        `json:"hasTest"`
	Items      []BlockItem `json:"items"`
}

type BlockItem struct {
	ID         int64     `json:"id"`
	ItemType   BlockType `json:"itemType"`
	Content    string    `json:"content"`
	MediaURL   string    `json:"mediaUrl"`
	OrderIndex int       `json:"orderIndex"`
}

func (c *HTTPClient) ListLessons(ctx context.Context) ([]Lesson, error) {
	var lessons []Lesson
	if err := c.doJSON(ctx, http.MethodGet, "/api/user/lessons", nil, &lessons); err != nil {
		return nil, err
	}
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].OrderIndex < lessons[j].OrderIndex })
	return lessons, nil
}

// GetLesson returns the lesson with blocks and block items in display order.
func (c *HTTPClient) GetLesson(ctx context.Context, lessonID int64) (Lesson, error) {
	var lesson Lesson
	path := "/api/user/lessons/" + url.PathEscape(strconv.FormatInt(lessonID, 10))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &lesson); err != nil {
		return Lesson{}, err
	}
	sortBlocks(lesson.Blocks)
	return lesson, nil
}

func (c *HTTPClient) CompleteLesson(ctx context.Context, lessonID int64) (bool, error) {
	path := "/api/user/lessons/" + url.PathEscape(strconv.FormatInt(lessonID, 10)) + "/complete"
	_, raw, err := c.do(ctx, http.MethodPost, path, nil)
	if err != nil {
		return false, err
	}
	return parseVerdict(raw)
}

func sortBlocks(blocks []Block) {
	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].OrderIndex < blocks[j].OrderIndex })
	for _, block := range blocks {
		items := block.Items
		sort.SliceStable(items, func(i, j int) bool { return items[i].OrderIndex < items[j].OrderIndex })
	}
}

// Texts returns the content of the block's TEXT items.
func (b Block) Texts() []string {
	var out []string
	for _, item := range b.Items {
		if item.ItemType == BlockText && strings.TrimSpace(item.Content) != "" {
			out = append(out, item.Content)
		}
	}
	return out
}

// Media returns the first item of the block's own type (IMAGE or VIDEO).
func (b Block) Media() (BlockItem, bool) {
	for _, item := range b.Items {
		if item.ItemType == b.Type && b.Type != BlockText {
			return item, true
		}
	}
	return BlockItem{}, false
}

// YouTubeID extracts the video id from watch?v=, youtu.be/, /shorts/ and
// /embed/ links.
func YouTubeID(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	if v := u.Query().Get("v"); v != "" {
		return v, true
	}
	if strings.Contains(u.Hostname(), "youtu.be") {
		return firstSegment(u.Path)
	}
	for _, prefix := range []string{"/shorts/", "/embed/"} {
		if strings.HasPrefix(u.Path, prefix) {
			return firstSegment(strings.TrimPrefix(u.Path, prefix))
		}
	}
	return "", false
}

func IsYouTubeShorts(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	return err == nil && strings.HasPrefix(u.Path, "/shorts/")
}

func YouTubeEmbedURL(id string) string {
	return "https://www.youtube.com/embed/" + id
}

func firstSegment(path string) (string, bool) {
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			return part, true
		}
	}
	return "", false
}
