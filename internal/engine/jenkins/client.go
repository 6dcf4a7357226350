package jenkins

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"executorjenkins/internal/apperrors"
	"executorjenkins/internal/config"
	"executorjenkins/internal/logger"
)

// Client represents a Jenkins API client
type Client struct {
	url      string
	username string
	token    string
	client   *http.Client
}

// JobInfo is the subset of /job/{name}/api/json the executor reads
type JobInfo struct {
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Buildable bool      `json:"buildable"`
	InQueue   bool      `json:"inQueue"`
	Color     string    `json:"color"`
	LastBuild *BuildRef `json:"lastBuild"`
}

// BuildRef points at one build of a job
type BuildRef struct {
	Number *int64 `json:"number"`
	URL    string `json:"url"`
}

// LastBuildNumber returns the last build number, if the job has one
func (j *JobInfo) LastBuildNumber() (int64, bool) {
	if j == nil || j.LastBuild == nil || j.LastBuild.Number == nil {
		return 0, false
	}
	return *j.LastBuild.Number, true
}

// BuildInfo is the subset of /job/{name}/{number}/api/json the executor reads
type BuildInfo struct {
	Number    int64  `json:"number"`
	URL       string `json:"url"`
	Building  bool   `json:"building"`
	Result    string `json:"result"`
	Duration  int64  `json:"duration"`
	Timestamp int64  `json:"timestamp"`
}

// QueueItem identifies a build request waiting in the Jenkins queue
type QueueItem struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

// Parameter is one named build parameter
type Parameter struct {
	Name  string
	Value string
}

// Parameters is an ordered list of build parameters
type Parameters []Parameter

// Map returns the parameters as a map
func (p Parameters) Map() map[string]string {
	m := make(map[string]string, len(p))
	for _, param := range p {
		m[param.Name] = param.Value
	}
	return m
}

// Get returns the value of the named parameter
func (p Parameters) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// NewClient creates a new Jenkins client instance
func NewClient(cfg config.JenkinsConfig) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second

	// Normalize URL: remove trailing slash to avoid double slashes in paths
	base := strings.TrimSuffix(cfg.URL, "/")

	return &Client{
		url:      base,
		username: cfg.Username,
		token:    cfg.Token,
		client:   &http.Client{Timeout: timeout},
	}
}

// URL returns the normalized base URL of the Jenkins server
func (c *Client) URL() string {
	return c.url
}

// JobExists reports whether a job with the given name exists
func (c *Client) JobExists(ctx context.Context, name string) (bool, error) {
	path, err := jobPath(name, "api", "json")
	if err != nil {
		return false, err
	}

	_, err = c.doRequest(ctx, http.MethodGet, path+"?tree=name", nil)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// CreateJob creates a job from an XML definition
func (c *Client) CreateJob(ctx context.Context, name, configXML string) error {
	if err := validateJobName(name); err != nil {
		return err
	}
	path := "/createItem?name=" + url.QueryEscape(name)
	_, err := c.doPost(ctx, path, "application/xml", configXML)
	return err
}

// UpdateJobConfig replaces the XML definition of an existing job
func (c *Client) UpdateJobConfig(ctx context.Context, name, configXML string) error {
	path, err := jobPath(name, "config.xml")
	if err != nil {
		return err
	}
	_, err = c.doPost(ctx, path, "application/xml", configXML)
	return err
}

// BuildJob triggers a build of the job with the given parameters
func (c *Client) BuildJob(ctx context.Context, name string, params Parameters) (*QueueItem, error) {
	path, err := jobPath(name, "buildWithParameters")
	if err != nil {
		return nil, err
	}

	formData := url.Values{}
	for _, p := range params {
		formData.Set(p.Name, p.Value)
	}

	resp, err := c.doPost(ctx, path, "application/x-www-form-urlencoded", formData.Encode())
	if err != nil {
		return nil, err
	}

	return c.extractQueueItem(resp.Header.Get("Location")), nil
}

// GetJob returns information about a job
func (c *Client) GetJob(ctx context.Context, name string) (*JobInfo, error) {
	path, err := jobPath(name, "api", "json")
	if err != nil {
		return nil, err
	}

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var info JobInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", name, err)
	}
	return &info, nil
}

// GetBuild returns information about one build of a job
func (c *Client) GetBuild(ctx context.Context, name string, number int64) (*BuildInfo, error) {
	path, err := jobPath(name, strconv.FormatInt(number, 10), "api", "json")
	if err != nil {
		return nil, err
	}

	respBody, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var info BuildInfo
	if err := json.Unmarshal(respBody, &info); err != nil {
		return nil, fmt.Errorf("failed to decode build %s/%d: %w", name, number, err)
	}
	if info.URL == "" {
		info.URL = fmt.Sprintf("%s/job/%s/%d/", c.url, url.PathEscape(name), number)
	}
	return &info, nil
}

// StopBuild aborts a running build
func (c *Client) StopBuild(ctx context.Context, name string, number int64) error {
	path, err := jobPath(name, strconv.FormatInt(number, 10), "stop")
	if err != nil {
		return err
	}
	_, err = c.doPost(ctx, path, "application/x-www-form-urlencoded", "")
	return err
}

// DeleteJob removes a job and all of its builds
func (c *Client) DeleteJob(ctx context.Context, name string) error {
	path, err := jobPath(name, "doDelete")
	if err != nil {
		return err
	}
	_, err = c.doPost(ctx, path, "application/x-www-form-urlencoded", "")
	return err
}

// doRequest sends a request to the Jenkins API and returns the response body
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	fullURL := c.url + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode != http.StatusNotFound {
			logger.Error("Jenkins API request failed", "status", resp.Status, "body", string(respBody), "url", fullURL)
		}
		return nil, newAPIError(resp.StatusCode)
	}

	return respBody, nil
}

// doPost sends a POST with a CSRF crumb attached
// The response body is drained and closed; headers remain readable
func (c *Client) doPost(ctx context.Context, path, contentType, body string) (*http.Response, error) {
	fullURL := c.url + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	c.authorize(req)

	// Jenkins expects a CSRF token for POST requests
	crumbField, crumbValue, err := c.getCrumb(ctx)
	if err != nil {
		logger.Warn("Failed to get CSRF crumb, proceeding without it", "error", err)
	} else if crumbField != "" && crumbValue != "" {
		req.Header.Set(crumbField, crumbValue)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Error("Jenkins POST request failed", "status", resp.Status, "body", string(respBody), "url", fullURL)
		return nil, newAPIError(resp.StatusCode)
	}

	return resp, nil
}

// authorize sets basic authentication (username:token)
func (c *Client) authorize(req *http.Request) {
	auth := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", c.username, c.token)))
	req.Header.Set("Authorization", "Basic "+auth)
}

// getCrumb retrieves the CSRF crumb from Jenkins for POST requests
// Returns the crumb field name and value separately
func (c *Client) getCrumb(ctx context.Context) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/crumbIssuer/api/json", nil)
	if err != nil {
		return "", "", err
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("failed to get crumb: %s", resp.Status)
	}

	var crumbData struct {
		Crumb             string `json:"crumb"`
		CrumbRequestField string `json:"crumbRequestField"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&crumbData); err != nil {
		return "", "", err
	}

	crumbField := crumbData.CrumbRequestField
	if crumbField == "" {
		crumbField = "Jenkins-Crumb" // Default field name
	}

	return crumbField, crumbData.Crumb, nil
}

// extractQueueItem parses the Location header of a build request
// Location format: /queue/item/42/ or http://jenkins/queue/item/42/
func (c *Client) extractQueueItem(location string) *QueueItem {
	if location == "" {
		return &QueueItem{}
	}

	pathPart := location
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		u, err := url.Parse(location)
		if err != nil {
			return &QueueItem{URL: location}
		}
		pathPart = u.Path
	}

	parts := strings.Split(strings.Trim(pathPart, "/"), "/")
	n := len(parts)
	if n >= 3 && parts[n-3] == "queue" && parts[n-2] == "item" {
		if id, err := strconv.ParseInt(parts[n-1], 10, 64); err == nil {
			return &QueueItem{ID: id, URL: fmt.Sprintf("%s/queue/item/%d/", c.url, id)}
		}
	}

	return &QueueItem{URL: location}
}

// validateJobName rejects names that would escape the /job/{name} path
func validateJobName(name string) error {
	if name == "" {
		return apperrors.Validation("job", "job name cannot be empty")
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") {
		return apperrors.Validation("job", "invalid job name format: "+name)
	}
	return nil
}

// jobPath builds /job/{name}/{segments...}
func jobPath(name string, segments ...string) (string, error) {
	if err := validateJobName(name); err != nil {
		return "", err
	}
	path := "/job/" + url.PathEscape(name)
	for _, s := range segments {
		path += "/" + s
	}
	return path, nil
}
