package uploads

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const presignTTL = 15 * time.Minute

type Config struct {
	Bucket        string
	Region        string
	Endpoint      string // empty for real AWS, set for MinIO-style storage
	AccessKey     string
	SecretKey     string
	PublicBaseURL string // where uploaded objects are served from
}

// Presigner hands out time-limited PUT URLs so post images go straight from
// the admin's browser to object storage, never through this service.
type Presigner struct {
	cfg     Config
	presign *s3.PresignClient
}

func NewPresigner(ctx context.Context, cfg Config) (*Presigner, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Presigner{
		cfg:     cfg,
		presign: s3.NewPresignClient(client),
	}, nil
}

func storageKey(filename string) string {
	d := time.Now()

	ext := ""
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i:]
	}

	return fmt.Sprintf("posts/%d/%02d/%s%s", d.Year(), d.Month(), uuid.NewString(), ext)
}

type PresignedUpload struct {
	Key       string `json:"key"`
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	ExpiresIn int    `json:"expiresInSeconds"`
}

func (p *Presigner) PresignPut(ctx context.Context, filename, contentType string) (PresignedUpload, error) {
	key := storageKey(filename)

	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(presignTTL))

	if err != nil {
		return PresignedUpload{}, fmt.Errorf("presign put: %w", err)
	}

	return PresignedUpload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: strings.TrimSuffix(p.cfg.PublicBaseURL, "/") + "/" + key,
		ExpiresIn: int(presignTTL.Seconds()),
	}, nil
}
