package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	rekotypes "github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mealbook/recipes_api/internal/pkg/config"
	"github.com/mealbook/recipes_api/internal/recipes/repository/imagestore"
)

type ImageStore struct {
	s3        *awss3.Client
	presign   *awss3.PresignClient
	detector  *rekognition.Client
	bucket    string
	urlExpiry time.Duration
	maxLabels int32
}

func New(ctx context.Context, cfg config.ImageStore) (ImageStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return ImageStore{}, fmt.Errorf("load aws config error: %w", err)
	}

	s3Client := awss3.NewFromConfig(awsCfg)

	return ImageStore{
		s3:        s3Client,
		presign:   awss3.NewPresignClient(s3Client),
		detector:  rekognition.NewFromConfig(awsCfg),
		bucket:    cfg.Bucket,
		urlExpiry: cfg.URLExpiry,
		maxLabels: int32(cfg.MaxLabels),
	}, nil
}

// StoreAndDetect uploads the image under key, presigns a GET URL for it and
// runs label detection against the stored object.
func (is ImageStore) StoreAndDetect(ctx context.Context, key string, image io.Reader) (imagestore.DetectResult, error) {
	_, err := is.s3.PutObject(ctx, &awss3.PutObjectInput{ //nolint:exhaustruct
		Bucket: aws.String(is.bucket),
		Key:    aws.String(key),
		Body:   image,
	})
	if err != nil {
		return imagestore.DetectResult{}, fmt.Errorf("put object error: %w", err)
	}

	presigned, err := is.presign.PresignGetObject(ctx, &awss3.GetObjectInput{ //nolint:exhaustruct
		Bucket: aws.String(is.bucket),
		Key:    aws.String(key),
	}, awss3.WithPresignExpires(is.urlExpiry))
	if err != nil {
		return imagestore.DetectResult{}, fmt.Errorf("presign error: %w", err)
	}

	out, err := is.detector.DetectLabels(ctx, &rekognition.DetectLabelsInput{ //nolint:exhaustruct
		Image: &rekotypes.Image{ //nolint:exhaustruct
			S3Object: &rekotypes.S3Object{ //nolint:exhaustruct
				Bucket: aws.String(is.bucket),
				Name:   aws.String(key),
			},
		},
		MaxLabels: aws.Int32(is.maxLabels),
	})
	if err != nil {
		return imagestore.DetectResult{}, fmt.Errorf("detect labels error: %w", err)
	}

	labels := make([]imagestore.Label, 0, len(out.Labels))

	for _, l := range out.Labels {
		labels = append(labels, imagestore.Label{
			Name:       aws.ToString(l.Name),
			Confidence: float64(aws.ToFloat32(l.Confidence)),
		})
	}

	return imagestore.DetectResult{
		URL:    presigned.URL,
		Labels: labels,
	}, nil
}
