package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"
)

var gradeDescriptions = map[string]string{
	"Grade 0": "Healthy knee image - No signs of osteoarthritis",
	"Grade 1": "Doubtful joint narrowing with possible osteophytic lipping",
	"Grade 2": "Definite presence of osteophytes and possible joint space narrowing",
	"Grade 3": "Multiple osteophytes, definite joint space narrowing, with mild sclerosis",
	"Grade 4": "Large osteophytes, significant joint narrowing, and severe sclerosis",
}

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tiff": true, ".dcm": true,
}

// ImageSource lists claim images and hands out URLs the classifier can fetch.
type ImageSource interface {
	List(ctx context.Context, prefix string) ([]string, error)
	PresignedURL(ctx context.Context, objectName string) (string, error)
}

type XRayConfig struct {
	Endpoint      string // full classify-by-url endpoint
	PredictionKey string
	Timeout       time.Duration
}

// XRayClassifier sends every image of a claim to an image classification
// service and summarises the grades against the claimed diagnosis.
type XRayClassifier struct {
	cfg    XRayConfig
	images ImageSource
	prefix func(claimID string) string
	client *http.Client
}

var _ Collaborator = (*XRayClassifier)(nil)

func NewXRayClassifier(cfg XRayConfig, images ImageSource, prefix func(claimID string) string) *XRayClassifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &XRayClassifier{
		cfg:    cfg,
		images: images,
		prefix: prefix,
		client: &http.Client{Timeout: timeout},
	}
}

type prediction struct {
	TagName     string  `json:"tagName"`
	Probability float64 `json:"probability"`
}

type predictionResponse struct {
	ID          string       `json:"id"`
	Predictions []prediction `json:"predictions"`
}

type imageResult struct {
	Object     string
	Grade      string
	Confidence float64
	Err        error
}

func (x *XRayClassifier) Query(ctx context.Context, facts ClaimFacts, _ string) (string, error) {
	if x == nil || x.cfg.Endpoint == "" || x.images == nil {
		return "", ErrCollaboratorUnavailable
	}

	objects, err := x.images.List(ctx, x.prefix(facts.ClaimID))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)
	}

	var images []string
	for _, obj := range objects {
		if imageExtensions[strings.ToLower(path.Ext(obj))] {
			images = append(images, obj)
		}
	}
	if len(images) == 0 {
		return fmt.Sprintf("X-ray Analysis for %s:\nNo X-ray images on file for claim %s.\n", facts.PatientName, facts.ClaimID), nil
	}

	results := make([]imageResult, 0, len(images))
	succeeded := 0
	for _, obj := range images {
		r := x.classify(ctx, obj)
		if r.Err == nil {
			succeeded++
		} else if ctx.Err() != nil {
			return "", ctx.Err()
		}
		results = append(results, r)
	}

	if succeeded == 0 {
		return "", fmt.Errorf("all %d x-ray predictions failed: %w", len(results), results[0].Err)
	}

	return summarise(facts, results, succeeded), nil
}

func (x *XRayClassifier) classify(ctx context.Context, object string) imageResult {
	res := imageResult{Object: object}

	url, err := x.images.PresignedURL(ctx, object)
	if err != nil {
		res.Err = err
		return res
	}

	body, _ := json.Marshal(map[string]string{"Url": url})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prediction-Key", x.cfg.PredictionKey)

	resp, err := x.client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		res.Err = err
		return res
	}
	if resp.StatusCode != http.StatusOK {
		res.Err = fmt.Errorf("classifier status %d: %s", resp.StatusCode, string(raw))
		return res
	}

	var out predictionResponse
	if err := json.Unmarshal(raw, &out); err != nil || len(out.Predictions) == 0 {
		res.Err = fmt.Errorf("%w: no predictions for %s", ErrMalformedResponse, object)
		return res
	}

	sort.Slice(out.Predictions, func(i, j int) bool {
		return out.Predictions[i].Probability > out.Predictions[j].Probability
	})
	res.Grade = out.Predictions[0].TagName
	res.Confidence = out.Predictions[0].Probability
	return res
}

func summarise(facts ClaimFacts, results []imageResult, succeeded int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "X-ray Fraud Analysis for %s:\n\n", facts.PatientName)
	fmt.Fprintf(&b, "Images Analyzed: %d\n", len(results))
	fmt.Fprintf(&b, "Successful Predictions: %d\n\n", succeeded)

	diagnosis := strings.ToLower(facts.Diagnosis)
	var flags []string
	for i, r := range results {
		if r.Err != nil {
			fmt.Fprintf(&b, "Image %d: prediction failed (%v)\n", i+1, r.Err)
			continue
		}
		fmt.Fprintf(&b, "Image %d: %s (%.2f%% confidence) - %s\n", i+1, r.Grade, r.Confidence*100, describeGrade(r.Grade))

		if !isOrthopedicFinding(r.Grade) {
			continue
		}
		if strings.Contains(diagnosis, "brain") || strings.Contains(diagnosis, "neuro") {
			flags = append(flags, "CRITICAL: Brain surgery claimed but orthopedic X-ray evidence")
		}
		if strings.Contains(diagnosis, "cardiac") || strings.Contains(diagnosis, "heart") {
			flags = append(flags, "CRITICAL: Cardiac procedure claimed but orthopedic X-ray evidence")
		}
	}

	if len(flags) > 0 {
		b.WriteString("\nFRAUD INDICATORS DETECTED:\n")
		for _, f := range flags {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	} else {
		b.WriteString("\nNo obvious fraud indicators in X-ray analysis\n")
	}
	return b.String()
}

func describeGrade(grade string) string {
	for name, desc := range gradeDescriptions {
		if strings.EqualFold(name, grade) || strings.Contains(strings.ToLower(grade), strings.ToLower(name)) {
			return desc
		}
	}
	return "Unknown grade classification"
}

// isOrthopedicFinding reports grades 1-4, which show osteoarthritis.
func isOrthopedicFinding(grade string) bool {
	g := strings.ToLower(grade)
	if strings.Contains(g, "osteoarthritis") {
		return true
	}
	for _, n := range []string{"grade 1", "grade 2", "grade 3", "grade 4"} {
		if strings.Contains(g, n) {
			return true
		}
	}
	return false
}
