package aws

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"netbackup/internal/models"
	"netbackup/pkg/logging"
)

const (
	describeInstances = "DescribeInstances"
	nameTag           = "Name"
	siteTag           = "site"
)

// DiscoveryService builds a device inventory from EC2 instances carrying a
// discovery tag. The tag value is the device type, the Name tag the device
// name and the private address the host.
type DiscoveryService struct {
	client EC2ClientAPI
	tagKey string
	logger logging.Logger
}

// NewDiscoveryServiceWithDefaultConfig creates a DiscoveryService with the default AWS SDK configuration
func NewDiscoveryServiceWithDefaultConfig(ctx context.Context, tagKey string, logger logging.Logger) (*DiscoveryService, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("unable to load AWS SDK config: %w", err), "", tagKey)
	}

	return NewDiscoveryServiceWithClient(ec2.NewFromConfig(cfg), tagKey, logger), nil
}

// NewDiscoveryServiceWithClient creates a DiscoveryService with a provided client
func NewDiscoveryServiceWithClient(client EC2ClientAPI, tagKey string, logger logging.Logger) *DiscoveryService {
	return &DiscoveryService{
		client: client,
		tagKey: tagKey,
		logger: logger,
	}
}

// Devices lists running tagged instances as devices, sorted by name.
// Instances without an address are skipped.
func (s *DiscoveryService) Devices(ctx context.Context) ([]models.Device, error) {
	if s.tagKey == "" {
		return nil, NewDiscoveryError(ErrInvalidInput, describeInstances, "", "discovery tag key is empty", nil)
	}

	input := &ec2.DescribeInstancesInput{
		Filters: []types.Filter{
			{Name: aws.String("tag-key"), Values: []string{s.tagKey}},
			{Name: aws.String("instance-state-name"), Values: []string{string(types.InstanceStateNameRunning)}},
		},
	}

	var devices []models.Device
	seen := make(map[string]struct{})
	paginator := ec2.NewDescribeInstancesPaginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, ClassifyError(err, describeInstances, s.tagKey)
		}

		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				device, ok := s.toDevice(instance)
				if !ok {
					continue
				}
				if _, dup := seen[device.Name]; dup {
					device.Name = fmt.Sprintf("%s-%s", device.Name, aws.ToString(instance.InstanceId))
				}
				seen[device.Name] = struct{}{}
				devices = append(devices, device)
			}
		}
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	s.logger.Info("Discovered %d devices tagged %s", len(devices), s.tagKey)
	return devices, nil
}

// toDevice converts an instance to a device. It reports false when the
// instance has no usable address.
func (s *DiscoveryService) toDevice(instance types.Instance) (models.Device, bool) {
	id := aws.ToString(instance.InstanceId)
	tags := convertTags(instance.Tags)

	host := aws.ToString(instance.PrivateIpAddress)
	if host == "" {
		host = aws.ToString(instance.PublicIpAddress)
	}
	if host == "" {
		s.logger.Warn("Skipping instance %s: no IP address", id)
		return models.Device{}, false
	}

	name := tags[nameTag]
	if name == "" {
		name = id
	}

	site := tags[siteTag]
	if site == "" && instance.Placement != nil {
		site = aws.ToString(instance.Placement.AvailabilityZone)
	}

	return models.Device{
		Name:       name,
		Host:       host,
		DeviceType: tags[s.tagKey],
		Site:       site,
	}, true
}

// convertTags converts AWS SDK tags to a map
func convertTags(tags []types.Tag) map[string]string {
	result := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key != nil && tag.Value != nil {
			result[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
		}
	}
	return result
}
