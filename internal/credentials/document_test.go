package credentials

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillforge/marketplace/internal/models"
	"github.com/skillforge/marketplace/pkg/storage"
)

type memArchive struct {
	objects map[string][]byte
	uploads int
}

func (a *memArchive) Upload(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if contentType != storage.ContentTypePDF {
		return io.ErrUnexpectedEOF
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	a.objects[key] = b
	a.uploads++
	return nil
}

func (a *memArchive) PresignedDownloadURL(_ context.Context, key string) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

func (a *memArchive) Exists(_ context.Context, key string) (bool, error) {
	_, ok := a.objects[key]
	return ok, nil
}

func TestRenderProducesPDF(t *testing.T) {
	score := 82
	for _, doc := range []*Document{
		{Kind: KindCertificate, HolderName: "Zoë Ångström", Title: "Go Concurrency", Serial: "CERT-2026-ABC123", VerificationCode: "QWERTY12", IssuedAt: issuedAt},
		{Kind: KindDiploma, HolderName: "Ada Lovelace", Title: "Cloud Architect", VerificationCode: "DIP-ABCDEFGHIJKL", Score: &score, IssuedAt: issuedAt},
	} {
		t.Run(doc.Kind, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Render(&buf, doc))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
			assert.Greater(t, buf.Len(), 500)
		})
	}
}

func TestDocumentsAndDownloadURL(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t, 2)
	f.complete(t, 2)
	cert, _, err := f.issuer.IssueCourseCertificate(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)

	archive := &memArchive{objects: make(map[string][]byte)}
	docs := NewDocuments(f.m, archive, nil)

	doc, err := docs.Certificate(ctx, f.user.ID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.Serial+".pdf", doc.Filename())
	assert.Equal(t, "certificates/"+f.user.ID.String()+"/"+cert.Serial+".pdf", doc.ArchiveKey())

	url, err := docs.DownloadURL(ctx, doc)
	require.NoError(t, err)
	assert.Contains(t, url, doc.ArchiveKey())
	assert.True(t, bytes.HasPrefix(archive.objects[doc.ArchiveKey()], []byte("%PDF-")))

	_, err = docs.DownloadURL(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 1, archive.uploads, "archived documents are not uploaded again")

	_, err = NewDocuments(f.m, nil, nil).DownloadURL(ctx, doc)
	assert.ErrorIs(t, err, ErrArchiveDisabled)

	other := f.m.AddUser(models.User{Email: "nobody@example.com"})
	_, err = docs.Certificate(ctx, other.ID, f.course.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDiplomaDocument(t *testing.T) {
	ctx := context.Background()
	f := newCourseFixture(t, 1)
	certification := f.m.AddCertification(models.Certification{Slug: "aws-sa", Name: "Solutions Architect"})
	diploma, _, err := f.issuer.IssueDiploma(ctx, f.user.ID, certification.ID, 74)
	require.NoError(t, err)
	docs := NewDocuments(f.m, nil, nil)

	doc, err := docs.Diploma(ctx, f.user.ID, "aws-sa")
	require.NoError(t, err)
	assert.Equal(t, KindDiploma, doc.Kind)
	assert.Equal(t, "diplomas/"+f.user.ID.String()+"/"+diploma.VerificationCode+".pdf", doc.ArchiveKey())
	require.NotNil(t, doc.Score)
	assert.Equal(t, 74, *doc.Score)

	_, err = docs.Diploma(ctx, f.user.ID, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}
