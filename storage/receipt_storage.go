package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/chainhr/payportal/config"
	"github.com/chainhr/payportal/internal/types"
)

// ReceiptStorage keeps a durable copy of every completed payment receipt
// in object storage, independent of the upstream backend's bookkeeping.
type ReceiptStorage struct {
	cfg      config.Config
	session  *session.Session
	s3Client *s3.S3
	logger   *logrus.Logger
}

func NewReceiptStorage(cfg config.Config) (*ReceiptStorage, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String(cfg.BlockStorage.Region),
		Endpoint:         aws.String(cfg.BlockStorage.Host),
		Credentials:      credentials.NewStaticCredentials(cfg.BlockStorage.AccessKey, cfg.BlockStorage.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return &ReceiptStorage{
		cfg:      cfg,
		session:  sess,
		s3Client: s3.New(sess),
		logger:   logrus.WithField("module", "receipt_storage").Logger,
	}, nil
}

func receiptKey(payrollID int64) string {
	return fmt.Sprintf("receipts/payroll-%d.json", payrollID)
}

func (rs *ReceiptStorage) ArchiveReceipt(ctx context.Context, receipt types.PaymentReceipt) error {
	content, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		return fmt.Errorf("fail to marshal receipt, err: %w", err)
	}
	key := receiptKey(receipt.PayrollID)
	rs.logger.Infoln("upload receipt", key, "bucket", rs.cfg.BlockStorage.Bucket, "content length", len(content))
	output, err := rs.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(rs.cfg.BlockStorage.Bucket),
		Key:           aws.String(key),
		ContentType:   aws.String("application/json"),
		Body:          aws.ReadSeekCloser(bytes.NewReader(content)),
		ContentLength: aws.Int64(int64(len(content))),
	})
	if err != nil {
		rs.logger.Error(err)
		return err
	}
	if output != nil {
		rs.logger.Infof("upload receipt %s success, version id: %s", key, aws.StringValue(output.VersionId))
	}
	return nil
}

func (rs *ReceiptStorage) GetReceipt(ctx context.Context, payrollID int64) (*types.PaymentReceipt, error) {
	key := receiptKey(payrollID)
	output, err := rs.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(rs.cfg.BlockStorage.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		rs.logger.Error("error getting receipt: ", err)
		return nil, err
	}
	defer func() {
		if err := output.Body.Close(); err != nil {
			rs.logger.Error(err)
		}
	}()
	content, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("fail to read receipt body, err: %w", err)
	}
	var receipt types.PaymentReceipt
	if err := json.Unmarshal(content, &receipt); err != nil {
		return nil, fmt.Errorf("fail to unmarshal receipt, err: %w", err)
	}
	return &receipt, nil
}
