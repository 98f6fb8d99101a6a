package video

import (
	"context"
	"fmt"

	"github.com/ppiankov/claimlens/internal/model"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// NewDataAPIService builds a YouTube Data API client authenticated by API key
func NewDataAPIService(ctx context.Context, apiKey string, opts ...option.ClientOption) (*youtube.Service, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return svc, nil
}

func (f *Fetcher) fromDataAPI(ctx context.Context, v *model.Video) error {
	resp, err := f.api.Videos.List([]string{"snippet", "contentDetails"}).Id(v.ID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("videos.list: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0] == nil {
		return fmt.Errorf("videos.list: video %s not found", v.ID)
	}

	item := resp.Items[0]
	if s := item.Snippet; s != nil {
		if s.Title != "" {
			v.Title = s.Title
		}
		if s.ChannelTitle != "" {
			v.Channel = s.ChannelTitle
		}
		if s.Thumbnails != nil && s.Thumbnails.High != nil && s.Thumbnails.High.Url != "" {
			v.Thumbnail = s.Thumbnails.High.Url
		}
	}
	if cd := item.ContentDetails; cd != nil {
		if secs, ok := ParseISODuration(cd.Duration); ok {
			v.DurationSec = secs
		}
	}
	return nil
}
