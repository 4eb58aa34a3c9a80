package vitalarbor

import (
	"context"
	"io"
	"strings"

	"github.com/antonholmquist/jason"
	bytefmt "github.com/labstack/gommon/bytes"
	"golang.org/x/sync/errgroup"

	"github.com/vitalarbor/vitalarbor-go/internal/errors"
	"github.com/vitalarbor/vitalarbor-go/internal/formdata"
	"github.com/vitalarbor/vitalarbor-go/internal/logger"
)

const (
	urlMarker        = `"url":`
	emptyListMarker  = `"images":[]`
	uploadFieldImage = "image"
)

// Image is one entry of the user's uploaded images.
type Image struct {
	Filename   string
	URL        string
	UploadedAt string
	Processed  bool
}

// ImageList is the /images answer. Count and Empty come from the raw body;
// Images is filled only when the body decodes as JSON.
type ImageList struct {
	Count  int
	Empty  bool
	Images []Image
	Raw    string
}

// ListImages fetches the user's uploaded images.
func (c *Client) ListImages(ctx context.Context, creds Credentials) (*ImageList, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	reply, err := c.http.PostJSON(ctx, c.url(PathImages), creds, c.cfg.JSONTimeout)
	if err != nil {
		return nil, err
	}
	if !reply.IsSuccess() {
		return nil, rejection("images", PathImages, reply)
	}

	body := reply.Text()
	list := &ImageList{
		Count: strings.Count(body, urlMarker),
		Empty: strings.Contains(body, emptyListMarker),
		Raw:   body,
	}

	if obj, err := jason.NewObjectFromBytes(reply.Body); err == nil {
		if msg, err := obj.GetString("error"); err == nil {
			return nil, errors.Newf("images rejected: %s", msg).
				Component("vitalarbor").
				Category(errors.CategoryBackendRejection).
				Context("operation", "images").
				Context("status_code", reply.StatusCode).
				Context("response_body", body).
				Build()
		}
		if items, err := obj.GetObjectArray("images"); err == nil {
			list.Images = make([]Image, 0, len(items))
			for _, item := range items {
				img := Image{}
				img.Filename, _ = item.GetString("filename")
				img.URL, _ = item.GetString("url")
				img.UploadedAt, _ = item.GetString("uploadedAt")
				img.Processed, _ = item.GetBoolean("processed")
				list.Images = append(list.Images, img)
			}
		}
	}

	c.log.Debug("images listed",
		logger.String("username", creds.Username),
		logger.Int("count", list.Count),
		logger.Bool("empty", list.Empty))
	return list, nil
}

// UploadResult describes a stored image.
type UploadResult struct {
	Path     string
	ImageURL string
	Filename string
	Message  string
}

// UploadImage sends one file to /upload. Success is any 2xx status.
func (c *Client) UploadImage(ctx context.Context, creds Credentials, path string) (*UploadResult, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	file, closer, err := formdata.FileFromPath(c.fs, uploadFieldImage, path)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	body, err := formdata.Encode(
		formdata.TextField{Name: "username", Value: creds.Username},
		formdata.TextField{Name: "password", Value: creds.Password},
		file,
	)
	if err != nil {
		return nil, err
	}

	c.log.Info("uploading image",
		logger.String("filename", file.Filename),
		logger.String("size", bytefmt.Format(file.Size)))

	reply, err := c.http.PostMultipart(ctx, c.url(PathUpload), body, c.cfg.UploadTimeout)
	if err != nil {
		return nil, err
	}
	if !reply.IsSuccess() {
		return nil, rejection("upload", PathUpload, reply)
	}

	result := &UploadResult{Path: path, Filename: file.Filename}
	if obj, err := jason.NewObjectFromBytes(reply.Body); err == nil {
		result.ImageURL, _ = obj.GetString("imageUrl")
		result.Message, _ = obj.GetString("message")
		if name, err := obj.GetString("filename"); err == nil && name != "" {
			result.Filename = name
		}
	}
	return result, nil
}

// UploadOutcome is the result of one file in UploadImages.
type UploadOutcome struct {
	Path   string
	Result *UploadResult
	Err    error
}

// UploadImages uploads each path as an independent task, at most
// UploadConcurrency at a time. Outcomes are returned in input order; one
// failure does not stop the others.
func (c *Client) UploadImages(ctx context.Context, creds Credentials, paths []string) []UploadOutcome {
	outcomes := make([]UploadOutcome, len(paths))
	if err := creds.Validate(); err != nil {
		for i, p := range paths {
			outcomes[i] = UploadOutcome{Path: p, Err: err}
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(c.cfg.UploadConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			result, err := c.UploadImage(ctx, creds, p)
			outcomes[i] = UploadOutcome{Path: p, Result: result, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// closeQuietly closes c, ignoring the error.
func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}
