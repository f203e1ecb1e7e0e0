package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	appconfig "nfc-wallet/config"
	"nfc-wallet/internal/core/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archive_Key(t *testing.T) {
	a := NewS3Archive(&fakeS3{}, "bucket", "ledger")
	day := time.Date(2026, 1, 5, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "ledger/2026/01/05.jsonl", a.Key(day))

	bare := NewS3Archive(&fakeS3{}, "bucket", "")
	assert.Equal(t, "2026/01/05.jsonl", bare.Key(day))
}

func TestS3Archive_PutWritesJSONLines(t *testing.T) {
	fake := &fakeS3{}
	a := NewS3Archive(fake, "wallet-archive", "ledger")

	entries := []domain.LedgerEntry{
		{TransactionID: "TXN-1", Direction: domain.DirectionDebit, Amount: decimal.RequireFromString("10.00"), Currency: "USD"},
		{TransactionID: "TXN-1", Direction: domain.DirectionCredit, Amount: decimal.RequireFromString("10.00"), Currency: "USD"},
	}

	key, err := a.Put(context.Background(), time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), entries)
	require.NoError(t, err)
	assert.Equal(t, "ledger/2026/03/14.jsonl", key)
	assert.Equal(t, "wallet-archive", aws.ToString(fake.input.Bucket))
	assert.Equal(t, key, aws.ToString(fake.input.Key))
	assert.Equal(t, contentType, aws.ToString(fake.input.ContentType))
	assert.Equal(t, int64(len(fake.body)), aws.ToInt64(fake.input.ContentLength))

	var lines []domain.LedgerEntry
	scanner := bufio.NewScanner(bytes.NewReader(fake.body))
	for scanner.Scan() {
		var e domain.LedgerEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		lines = append(lines, e)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, domain.DirectionDebit, lines[0].Direction)
	assert.True(t, lines[1].Amount.Equal(decimal.RequireFromString("10")))
}

func TestS3Archive_PutFailure(t *testing.T) {
	a := NewS3Archive(&fakeS3{err: errors.New("access denied")}, "b", "p")
	_, err := a.Put(context.Background(), time.Now(), []domain.LedgerEntry{{}})
	assert.ErrorContains(t, err, "access denied")
}

func TestNewS3Client_RequiresBucket(t *testing.T) {
	_, err := NewS3Client(context.Background(), appconfig.ArchiveConfig{Region: "auto"})
	assert.Error(t, err)
}

func TestNewS3Client_CustomEndpoint(t *testing.T) {
	client, err := NewS3Client(context.Background(), appconfig.ArchiveConfig{
		Bucket:          "b",
		Region:          "auto",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio123",
	})
	require.NoError(t, err)

	opts := client.Options()
	assert.True(t, opts.UsePathStyle)
	assert.Equal(t, "http://localhost:9000", aws.ToString(opts.BaseEndpoint))
}
