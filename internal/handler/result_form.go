package handler

import (
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/dto"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

const maxFormMemory = 8 << 20

var scoreFields = []string{"first_ca", "second_ca", "exam"}

// submissionForm reads the posted form values for both urlencoded and multipart bodies.
func submissionForm(c *gin.Context) (url.Values, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "malformed form body")
		}
	} else if err := c.Request.ParseForm(); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "malformed form body")
	}
	if c.Request.PostForm == nil {
		return url.Values{}, nil
	}
	return c.Request.PostForm, nil
}

// indexedKeys splits "first_ca[a][b]" into ["a", "b"] when key belongs to field.
func indexedKeys(key, field string) ([]string, bool) {
	if !strings.HasPrefix(key, field+"[") || !strings.HasSuffix(key, "]") {
		return nil, false
	}
	parts := strings.Split(key[len(field)+1:len(key)-1], "][")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return nil, false
		}
	}
	return parts, true
}

func setRawScore(raw *dto.RawScores, field, value string) {
	switch field {
	case "first_ca":
		raw.FirstCA = value
	case "second_ca":
		raw.SecondCA = value
	case "exam":
		raw.Exam = value
	}
}

func formValue(form url.Values, key string) string {
	return strings.TrimSpace(form.Get(key))
}

func formList(form url.Values, keys ...string) []string {
	var out []string
	for _, key := range keys {
		for _, v := range form[key] {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

// parseFlag accepts checkbox and boolean spellings. Unknown values yield nil so the
// all-zero rule decides.
func parseFlag(value string) *bool {
	var flag bool
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		flag = true
	case "0", "false", "off", "no":
		flag = false
	default:
		return nil
	}
	return &flag
}

func singleResultFromForm(form url.Values) dto.SingleResultRequest {
	return dto.SingleResultRequest{
		StudentID:       formValue(form, "student_id"),
		SubjectID:       formValue(form, "subject_id"),
		Term:            formValue(form, "term"),
		AcademicSession: formValue(form, "academic_session"),
		RawScores: dto.RawScores{
			FirstCA:  form.Get("first_ca"),
			SecondCA: form.Get("second_ca"),
			Exam:     form.Get("exam"),
		},
	}
}

func batchResultFromForm(form url.Values) dto.BatchResultRequest {
	scores := make(map[dto.PairKey]dto.RawScores)
	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		for _, field := range scoreFields {
			parts, ok := indexedKeys(key, field)
			if !ok || len(parts) != 2 {
				continue
			}
			pair := dto.PairKey{StudentID: parts[0], SubjectID: parts[1]}
			raw := scores[pair]
			setRawScore(&raw, field, values[len(values)-1])
			scores[pair] = raw
		}
	}
	return dto.BatchResultRequest{
		ClassID:         formValue(form, "class_id"),
		Term:            formValue(form, "term"),
		AcademicSession: formValue(form, "academic_session"),
		StudentIDs:      formList(form, "student_ids", "student_ids[]"),
		Scores:          scores,
	}
}

func multiSubjectFromForm(form url.Values) dto.MultiSubjectRequest {
	subjects := make(map[string]dto.MultiSubjectEntry)
	for key, values := range form {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]
		for _, field := range scoreFields {
			if parts, ok := indexedKeys(key, field); ok && len(parts) == 1 {
				entry := subjects[parts[0]]
				setRawScore(&entry.RawScores, field, value)
				subjects[parts[0]] = entry
			}
		}
		if parts, ok := indexedKeys(key, "attempted"); ok && len(parts) == 1 {
			entry := subjects[parts[0]]
			entry.Attempted = parseFlag(value)
			subjects[parts[0]] = entry
		}
	}
	return dto.MultiSubjectRequest{
		StudentID:       formValue(form, "student_id"),
		Term:            formValue(form, "term"),
		AcademicSession: formValue(form, "academic_session"),
		Subjects:        subjects,
	}
}
