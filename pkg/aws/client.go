package aws

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	log "github.com/sirupsen/logrus"
)

const (
	// S3Scheme prefixes report locations stored in S3.
	S3Scheme = "s3://"

	// ParquetSuffix is the extension of Parquet billing export objects.
	ParquetSuffix = ".parquet"

	// maxS3Keys is the maximum amount of keys to be returned by a single S3
	// list objects API response
	maxS3Keys = 200
)

// ReportFetcher makes a billing export available as a local path that can be
// ingested.
type ReportFetcher interface {
	Fetch(location string) (string, error)
}

type reportFetcher struct {
	logger log.FieldLogger
	s3API  s3iface.S3API
	dir    string
}

// NewReportFetcher returns a ReportFetcher downloading s3:// locations into
// dir. Any other location is assumed to be local and returned unchanged.
func NewReportFetcher(logger log.FieldLogger, region, dir string) ReportFetcher {
	awsSession := session.Must(session.NewSession())
	client := s3.New(awsSession, aws.NewConfig().WithRegion(region))
	return newReportFetcher(logger, client, dir)
}

func newReportFetcher(logger log.FieldLogger, client s3iface.S3API, dir string) *reportFetcher {
	return &reportFetcher{
		logger: logger.WithField("component", "reportFetcher"),
		s3API:  client,
		dir:    dir,
	}
}

// IsS3Location reports whether location refers to an S3 object or prefix.
func IsS3Location(location string) bool {
	return strings.HasPrefix(location, S3Scheme)
}

// ParseS3Location splits an s3://bucket/key location.
func ParseS3Location(location string) (bucket, key string, err error) {
	if !IsS3Location(location) {
		return "", "", fmt.Errorf("%q is not an S3 location", location)
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 location %q: %v", location, err)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid S3 location %q: bucket and key are required", location)
	}
	return u.Host, key, nil
}

// Fetch downloads the object at location, or every Parquet object below it
// when location ends with a '/'. For a prefix the returned path is a glob
// matching the downloaded files.
func (f *reportFetcher) Fetch(location string) (string, error) {
	if !IsS3Location(location) {
		return location, nil
	}
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return "", err
	}

	localDir := filepath.Join(f.dir, bucket, filepath.FromSlash(strings.TrimPrefix(path.Clean("/"+key), "/")))
	logger := f.logger.WithFields(log.Fields{"bucket": bucket, "key": key})

	if !strings.HasSuffix(key, "/") {
		dest := localDir
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return "", fmt.Errorf("unable to create directory for %s: %v", location, err)
		}
		logger.Infof("downloading billing export to %s", dest)
		if err := f.download(bucket, key, dest); err != nil {
			return "", err
		}
		return dest, nil
	}

	// the previous download is removed so files no longer present under the
	// prefix are not ingested again
	if err := os.RemoveAll(localDir); err != nil {
		return "", fmt.Errorf("unable to clear %s: %v", localDir, err)
	}
	if err := os.MkdirAll(localDir, 0755); err != nil {
		return "", fmt.Errorf("unable to create directory %s: %v", localDir, err)
	}

	keys, err := f.listParquetObjects(bucket, key)
	if err != nil {
		return "", err
	}
	if len(keys) == 0 {
		return "", fmt.Errorf("no %s objects found under %s", ParquetSuffix, location)
	}
	logger.Infof("downloading %d billing export objects to %s", len(keys), localDir)
	for _, k := range keys {
		name := strings.Replace(strings.TrimPrefix(k, key), "/", "_", -1)
		if err := f.download(bucket, k, filepath.Join(localDir, name)); err != nil {
			return "", err
		}
	}
	return filepath.Join(localDir, "*"+ParquetSuffix), nil
}

func (f *reportFetcher) listParquetObjects(bucket, prefix string) ([]string, error) {
	var keys []string
	pageFn := func(out *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range out.Contents {
			if strings.HasSuffix(*obj.Key, ParquetSuffix) {
				keys = append(keys, *obj.Key)
			}
		}
		return true
	}

	err := f.s3API.ListObjectsV2Pages(&s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int64(maxS3Keys),
	}, pageFn)
	if err != nil {
		return nil, fmt.Errorf("could not list billing export keys in 's3://%s/%s': %v", bucket, prefix, err)
	}
	return keys, nil
}

// download writes the object to a temporary file next to dest and renames it
// into place once complete.
func (f *reportFetcher) download(bucket, key, dest string) error {
	obj, err := f.s3API.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("can't get billing export from bucket '%s' with key '%s': %v", bucket, key, err)
	}
	defer obj.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, obj.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("failed writing 's3://%s/%s' to disk: %v", bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
