package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/digkill/TGCreatorPayBot/internal/ledger"
)

type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	UsePathStyle  bool
	Prefix        string
}

// Exporter writes CSV snapshots of the submission ledger to S3 so the
// payout history can be reviewed outside the bot.
type Exporter struct {
	cfg         Config
	client      *s3.Client
	submissions ledger.SubmissionStore
}

const exportBatchSize = 10000

func NewExporter(cfg Config, submissions ledger.SubmissionStore) (*Exporter, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.PublicBaseURL == "" {
		return nil, fmt.Errorf("s3 public base url is required")
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "exports"
	}

	options := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: cfg.UsePathStyle,
	}
	if cfg.Endpoint != "" {
		options.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	return &Exporter{
		cfg:         cfg,
		client:      s3.New(options),
		submissions: submissions,
	}, nil
}

// Export uploads a CSV snapshot of the newest submissions and returns
// the public URL of the object.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	subs, err := e.submissions.ListRecent(ctx, exportBatchSize)
	if err != nil {
		return "", fmt.Errorf("load submissions: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"id", "user_id", "platform", "link", "views", "qualified", "amount", "created_at"}); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	for _, sub := range subs {
		qualified := "NO"
		if sub.Qualified {
			qualified = "YES"
		}
		record := []string{
			sub.ID,
			sub.UserID,
			sub.Platform,
			sub.Link,
			strconv.FormatInt(sub.Views, 10),
			qualified,
			sub.Amount.StringFixed(2),
			sub.CreatedAt.Format(time.RFC3339),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush csv: %w", err)
	}

	key := e.generateKey()
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("upload to s3: %w", err)
	}
	return strings.TrimRight(e.cfg.PublicBaseURL, "/") + "/" + key, nil
}

func (e *Exporter) generateKey() string {
	now := time.Now().UTC()
	prefix := strings.Trim(e.cfg.Prefix, "/")
	return path.Join(prefix, fmt.Sprintf("%04d/%02d/%02d", now.Year(), now.Month(), now.Day()), "submissions-"+uuid.NewString()+".csv")
}
