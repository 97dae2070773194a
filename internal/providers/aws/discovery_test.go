package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"netbackup/internal/models"
	"netbackup/internal/providers/aws/mocks"
	"netbackup/pkg/logging"
)

const testTagKey = "netbackup:device_type"

func taggedInstance(id, name, deviceType, ip string) types.Instance {
	instance := types.Instance{
		InstanceId:       aws.String(id),
		PrivateIpAddress: aws.String(ip),
		Placement:        &types.Placement{AvailabilityZone: aws.String("eu-west-1a")},
		Tags: []types.Tag{
			{Key: aws.String(testTagKey), Value: aws.String(deviceType)},
		},
	}
	if name != "" {
		instance.Tags = append(instance.Tags, types.Tag{Key: aws.String("Name"), Value: aws.String(name)})
	}
	return instance
}

// hasDiscoveryFilters matches requests filtering on the tag key and running state
func hasDiscoveryFilters(nextToken *string) interface{} {
	return mock.MatchedBy(func(input *ec2.DescribeInstancesInput) bool {
		if aws.ToString(input.NextToken) != aws.ToString(nextToken) || len(input.Filters) != 2 {
			return false
		}
		return aws.ToString(input.Filters[0].Name) == "tag-key" &&
			input.Filters[0].Values[0] == testTagKey &&
			aws.ToString(input.Filters[1].Name) == "instance-state-name"
	})
}

func TestDevices_Success(t *testing.T) {
	mockClient := mocks.NewEC2ClientAPI(t)

	mockClient.On("DescribeInstances", mock.Anything, hasDiscoveryFilters(nil), mock.Anything).
		Return(&ec2.DescribeInstancesOutput{
			Reservations: []types.Reservation{{
				Instances: []types.Instance{
					taggedInstance("i-0002", "vsrx-edge", models.DeviceTypeJuniperJunos, "10.1.0.2"),
					taggedInstance("i-0001", "csr-core", models.DeviceTypeCiscoIOS, "10.1.0.1"),
				},
			}},
		}, nil).Once()

	service := NewDiscoveryServiceWithClient(mockClient, testTagKey, logging.NewMockLogger())
	devices, err := service.Devices(context.Background())

	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, models.Device{
		Name:       "csr-core",
		Host:       "10.1.0.1",
		DeviceType: models.DeviceTypeCiscoIOS,
		Site:       "eu-west-1a",
	}, devices[0])
	assert.Equal(t, "vsrx-edge", devices[1].Name)
	assert.Equal(t, models.DeviceTypeJuniperJunos, devices[1].DeviceType)
}

func TestDevices_FollowsPages(t *testing.T) {
	mockClient := mocks.NewEC2ClientAPI(t)

	mockClient.On("DescribeInstances", mock.Anything, hasDiscoveryFilters(nil), mock.Anything).
		Return(&ec2.DescribeInstancesOutput{
			Reservations: []types.Reservation{{Instances: []types.Instance{
				taggedInstance("i-0001", "a", models.DeviceTypeCiscoIOS, "10.1.0.1"),
			}}},
			NextToken: aws.String("page-2"),
		}, nil).Once()
	mockClient.On("DescribeInstances", mock.Anything, hasDiscoveryFilters(aws.String("page-2")), mock.Anything).
		Return(&ec2.DescribeInstancesOutput{
			Reservations: []types.Reservation{{Instances: []types.Instance{
				taggedInstance("i-0002", "b", models.DeviceTypeAristaEOS, "10.1.0.2"),
			}}},
		}, nil).Once()

	service := NewDiscoveryServiceWithClient(mockClient, testTagKey, logging.NewMockLogger())
	devices, err := service.Devices(context.Background())

	require.NoError(t, err)
	assert.Len(t, devices, 2)
}

func TestDevices_NameFallbacksAndSkips(t *testing.T) {
	mockClient := mocks.NewEC2ClientAPI(t)

	noAddress := taggedInstance("i-0004", "dark", models.DeviceTypeCiscoIOS, "")
	noAddress.PrivateIpAddress = nil

	publicOnly := taggedInstance("i-0005", "public", models.DeviceTypeCiscoIOS, "")
	publicOnly.PrivateIpAddress = nil
	publicOnly.PublicIpAddress = aws.String("203.0.113.5")

	mockClient.On("DescribeInstances", mock.Anything, mock.Anything, mock.Anything).
		Return(&ec2.DescribeInstancesOutput{
			Reservations: []types.Reservation{{
				Instances: []types.Instance{
					taggedInstance("i-0001", "", models.DeviceTypeCiscoIOS, "10.1.0.1"),
					taggedInstance("i-0002", "twin", models.DeviceTypeCiscoIOS, "10.1.0.2"),
					taggedInstance("i-0003", "twin", models.DeviceTypeCiscoIOS, "10.1.0.3"),
					noAddress,
					publicOnly,
				},
			}},
		}, nil).Once()

	service := NewDiscoveryServiceWithClient(mockClient, testTagKey, logging.NewMockLogger())
	devices, err := service.Devices(context.Background())
	require.NoError(t, err)

	var names []string
	for _, d := range devices {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"i-0001", "public", "twin", "twin-i-0003"}, names)
	assert.Equal(t, "203.0.113.5", devices[1].Host)
}

func TestDevices_AWSError(t *testing.T) {
	mockClient := mocks.NewEC2ClientAPI(t)

	apiErr := &smithy.GenericAPIError{Code: "UnauthorizedOperation", Message: "You are not authorized"}
	mockClient.On("DescribeInstances", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, apiErr).Once()

	service := NewDiscoveryServiceWithClient(mockClient, testTagKey, logging.NewMockLogger())
	devices, err := service.Devices(context.Background())

	assert.Nil(t, devices)
	assert.True(t, IsErrorCategory(err, ErrPermissionDenied))
	assert.ErrorIs(t, err, apiErr)
}

func TestDevices_EmptyTagKey(t *testing.T) {
	service := NewDiscoveryServiceWithClient(mocks.NewEC2ClientAPI(t), "", logging.NewMockLogger())

	_, err := service.Devices(context.Background())
	assert.True(t, IsErrorCategory(err, ErrInvalidInput))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err      error
		expected ErrorCategory
	}{
		{&smithy.GenericAPIError{Code: "AuthFailure"}, ErrPermissionDenied},
		{&smithy.GenericAPIError{Code: "RequestLimitExceeded"}, ErrThrottling},
		{&smithy.GenericAPIError{Code: "InvalidParameterValue"}, ErrInvalidInput},
		{errors.New("dial tcp: lookup ec2.eu-west-1.amazonaws.com: no such host"), ErrNetworkError},
		{errors.New("operation error EC2: failed to retrieve credentials"), ErrConfigurationError},
		{errors.New("something odd"), ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(string(tt.expected), func(t *testing.T) {
			err := ClassifyError(tt.err, describeInstances, testTagKey)
			assert.Equal(t, tt.expected, err.Category)
			assert.Equal(t, tt.err, err.Unwrap())
		})
	}

	assert.Nil(t, ClassifyError(nil, describeInstances, testTagKey))
}

func TestError_Format(t *testing.T) {
	err := NewDiscoveryError(ErrThrottling, describeInstances, testTagKey, "Request throttled", nil)
	assert.Equal(t, "request_throttled: Request throttled [DescribeInstances, tag: netbackup:device_type]", err.Error())

	err = NewDiscoveryError(ErrInternalError, describeInstances, "", "Discovery failed", nil)
	assert.Equal(t, "internal_error: Discovery failed [DescribeInstances]", err.Error())

	err = NewDiscoveryError(ErrConfigurationError, "", "", "no region", nil)
	assert.Equal(t, "configuration_error: no region", err.Error())
}
