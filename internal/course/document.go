package course

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Course document layout:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<content lines>
//
//	Lesson 1: ...
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)

// ParsedDocument is the result of parsing one course document.
type ParsedDocument struct {
	Course Course
	Chunks []Chunk
}

// ParseDocument parses a course document into its header, lessons, and
// content chunks. fallbackTitle is used when the document carries no
// "Course Title:" header, typically the file name.
func ParseDocument(content, fallbackTitle string, chunkSize, chunkOverlap int) (*ParsedDocument, error) {
	lines := strings.Split(content, "\n")

	course := Course{Title: fallbackTitle}
	headerEnd := 0
	for headerEnd < len(lines) && headerEnd < 3 {
		line := strings.TrimSpace(lines[headerEnd])
		if strings.HasPrefix(line, "Course Title:") {
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		} else if strings.HasPrefix(line, "Course Link:") {
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		} else if strings.HasPrefix(line, "Course Instructor:") {
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		} else {
			break
		}
		headerEnd++
	}
	body := lines[headerEnd:]

	if course.Title == "" {
		return nil, fmt.Errorf("document has no course title and no fallback")
	}

	var (
		chunks        []Chunk
		currentLesson *int
		buf           []string
		chunkIndex    int
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		buf = buf[:0]
		if text == "" {
			return
		}
		for _, piece := range ChunkText(text, chunkSize, chunkOverlap) {
			chunks = append(chunks, Chunk{
				Content:      piece,
				LessonNumber: currentLesson,
				Index:        chunkIndex,
			})
			chunkIndex++
		}
	}

	for i := 0; i < len(body); i++ {
		line := strings.TrimSpace(body[i])

		if m := lessonMarker.FindStringSubmatch(line); m != nil {
			flush()

			number, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, fmt.Errorf("lesson number %q: %w", m[1], err)
			}
			lesson := Lesson{Number: number, Title: strings.TrimSpace(m[2])}

			// An optional link line directly follows the marker.
			if i+1 < len(body) {
				next := strings.TrimSpace(body[i+1])
				if strings.HasPrefix(next, "Lesson Link:") {
					lesson.Link = strings.TrimSpace(strings.TrimPrefix(next, "Lesson Link:"))
					i++
				}
			}

			course.Lessons = append(course.Lessons, lesson)
			n := lesson.Number
			currentLesson = &n
			continue
		}

		buf = append(buf, body[i])
	}
	flush()

	return &ParsedDocument{Course: course, Chunks: chunks}, nil
}

// ChunkText splits text into chunks of at most chunkSize characters on
// sentence boundaries, with roughly chunkOverlap characters of trailing
// sentences repeated at the start of the next chunk. Sentences longer than
// chunkSize become chunks of their own.
func ChunkText(text string, chunkSize, chunkOverlap int) []string {
	if chunkSize < 1 {
		chunkSize = 800
	}
	if chunkOverlap < 0 {
		chunkOverlap = 0
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(sentences) {
		var (
			size int
			end  = start
		)
		for end < len(sentences) {
			next := len(sentences[end])
			if size > 0 {
				next++ // joining space
			}
			if size+next > chunkSize && size > 0 {
				break
			}
			size += next
			end++
		}
		if end == start {
			// Single oversized sentence.
			end = start + 1
		}

		chunks = append(chunks, strings.Join(sentences[start:end], " "))
		if end >= len(sentences) {
			break
		}

		// Walk back over trailing sentences until the overlap budget is
		// spent, always advancing past at least one sentence.
		next := end
		budget := chunkOverlap
		for next > start+1 {
			prev := len(sentences[next-1])
			if prev > budget {
				break
			}
			budget -= prev
			next--
		}
		start = next
	}
	return chunks
}

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// splitSentences normalizes whitespace and splits on sentence-ending
// punctuation followed by whitespace.
func splitSentences(text string) []string {
	normalized := strings.Join(strings.Fields(text), " ")
	if normalized == "" {
		return nil
	}

	marked := sentenceEnd.ReplaceAllString(normalized, "$1\x00")
	parts := strings.Split(marked, "\x00")

	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}
