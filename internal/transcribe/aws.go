package transcribe

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	"github.com/aws/aws-sdk-go-v2/service/transcribe/types"
)

// S3BlobStore implements BlobStore on top of an S3 bucket.
type S3BlobStore struct {
	client *s3.Client
	bucket string
}

func NewS3BlobStore(client *s3.Client, bucket string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket}
}

func (s *S3BlobStore) Upload(ctx context.Context, key, localPath string) (string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// TranscribeJobRunner implements JobRunner on AWS Transcribe.
type TranscribeJobRunner struct {
	client   *awstranscribe.Client
	language types.LanguageCode
}

func NewTranscribeJobRunner(client *awstranscribe.Client, language string) *TranscribeJobRunner {
	code := types.LanguageCode(language)
	if language == "" {
		code = types.LanguageCodeEnUs
	}
	return &TranscribeJobRunner{client: client, language: code}
}

func (r *TranscribeJobRunner) Start(ctx context.Context, jobName, mediaURI string) error {
	_, err := r.client.StartTranscriptionJob(ctx, &awstranscribe.StartTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
		Media:                &types.Media{MediaFileUri: aws.String(mediaURI)},
		MediaFormat:          types.MediaFormatMp3,
		LanguageCode:         r.language,
	})
	if err != nil {
		return fmt.Errorf("start job %s: %w", jobName, err)
	}
	return nil
}

func (r *TranscribeJobRunner) Poll(ctx context.Context, jobName string) (JobState, error) {
	out, err := r.client.GetTranscriptionJob(ctx, &awstranscribe.GetTranscriptionJobInput{
		TranscriptionJobName: aws.String(jobName),
	})
	if err != nil {
		return JobState{}, fmt.Errorf("get job %s: %w", jobName, err)
	}
	job := out.TranscriptionJob
	if job == nil {
		return JobState{}, fmt.Errorf("get job %s: empty response", jobName)
	}

	state := JobState{Status: JobInProgress}
	switch job.TranscriptionJobStatus {
	case types.TranscriptionJobStatusCompleted:
		state.Status = JobCompleted
		if job.Transcript != nil {
			state.ResultURI = aws.ToString(job.Transcript.TranscriptFileUri)
		}
	case types.TranscriptionJobStatusFailed:
		state.Status = JobFailed
		state.FailureReason = aws.ToString(job.FailureReason)
	}
	return state, nil
}
