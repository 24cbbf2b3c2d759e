package email

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSESClient struct {
	mock.Mock
}

func (m *MockSESClient) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	var out *sesv2.SendEmailOutput
	if args.Get(0) != nil {
		out = args.Get(0).(*sesv2.SendEmailOutput)
	}
	return out, args.Error(1)
}

func TestSESNotifier_Disabled(t *testing.T) {
	n, err := NewSESNotifier(context.Background(), "us-east-1", "", "Shope Lite")
	require.NoError(t, err)
	assert.False(t, n.IsEnabled())
	assert.NoError(t, n.SendPasswordResetEmail(context.Background(), "a@x.com", "alice", "http://x/reset-password/t"))

	var nilNotifier *SESNotifier
	assert.False(t, nilNotifier.IsEnabled())
}

func TestSESNotifier_SendsResetLink(t *testing.T) {
	client := new(MockSESClient)
	n := NewSESNotifierWithClient(client, "no-reply@shope.example", "Shope Lite")
	link := "http://localhost:5173/reset-password/abc123"

	client.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
		return aws.ToString(in.FromEmailAddress) == "Shope Lite <no-reply@shope.example>" &&
			len(in.Destination.ToAddresses) == 1 && in.Destination.ToAddresses[0] == "alice@x.com" &&
			assert.Contains(t, aws.ToString(in.Content.Simple.Body.Text.Data), link) &&
			assert.Contains(t, aws.ToString(in.Content.Simple.Body.Html.Data), link)
	})).Return(&sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil)

	require.NoError(t, n.SendPasswordResetEmail(context.Background(), "alice@x.com", "alice", link))
	client.AssertExpectations(t)
}

func TestSESNotifier_PropagatesError(t *testing.T) {
	client := new(MockSESClient)
	n := NewSESNotifierWithClient(client, "no-reply@shope.example", "")
	client.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := n.SendPasswordResetEmail(context.Background(), "alice@x.com", "alice", "link")
	assert.ErrorContains(t, err, "throttled")
}
