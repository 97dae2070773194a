package session

import (
	"fmt"
	"math/rand/v2"
	"time"

	"netbackup/internal/models"
)

// Generator renders a running configuration for a simulated device.
type Generator func(deviceName string, now time.Time, rnd *rand.Rand) string

// DefaultGenerators returns the built-in vendor generators keyed by device type.
func DefaultGenerators() map[string]Generator {
	return map[string]Generator{
		models.DeviceTypeCiscoIOS:     CiscoIOSConfig,
		models.DeviceTypeJuniperJunos: JuniperJunosConfig,
		models.DeviceTypeAristaEOS:    AristaEOSConfig,
	}
}

// octet returns a random host octet in [lo, hi].
func octet(rnd *rand.Rand, lo, hi int) int {
	return lo + rnd.IntN(hi-lo+1)
}

// CiscoIOSConfig renders an IOS-style configuration. It is also the fallback
// for unknown device types.
func CiscoIOSConfig(deviceName string, now time.Time, rnd *rand.Rand) string {
	return fmt.Sprintf(`!
! Cisco IOS Configuration for %[1]s
! Generated: %[2]s
!
version 15.2
service timestamps debug datetime msec
service timestamps log datetime msec
service password-encryption
!
hostname %[1]s
!
boot-start-marker
boot-end-marker
!
logging buffered 4096 debugging
!
no aaa new-model
!
ip cef
!
no ip domain lookup
ip domain name company.local
!
interface GigabitEthernet0/0
 description Management Interface
 ip address 192.168.1.%[3]d 255.255.255.0
 negotiation auto
 no shutdown
!
interface GigabitEthernet0/1
 description Uplink to Core
 switchport mode trunk
 switchport trunk native vlan 999
 negotiation auto
 no shutdown
!
interface Vlan1
 ip address 10.1.1.%[4]d 255.255.255.0
!
line con 0
 logging synchronous
line vty 0 4
 login local
 transport input ssh
!
ntp server 10.1.1.10
!
end
`, deviceName, now.Format(time.DateTime), octet(rnd, 10, 50), octet(rnd, 1, 254))
}

// JuniperJunosConfig renders a Junos-style hierarchical configuration.
func JuniperJunosConfig(deviceName string, now time.Time, rnd *rand.Rand) string {
	return fmt.Sprintf(`# Juniper JunOS Configuration for %[1]s
# Generated: %[2]s

system {
    host-name %[1]s;
    root-authentication {
        encrypted-password "$1$abc123"; ## SECRET-DATA
    }
    services {
        ssh;
        netconf {
            ssh;
        }
    }
    syslog {
        user * {
            any emergency;
        }
        file messages {
            any notice;
            authorization info;
        }
    }
    ntp {
        server 10.1.1.10;
    }
}

interfaces {
    ge-0/0/0 {
        unit 0 {
            family inet {
                address 192.168.1.%[3]d/24;
            }
        }
    }
    ge-0/0/1 {
        unit 0 {
            family ethernet-switching {
                port-mode trunk;
                vlan {
                    members [1-100];
                }
            }
        }
    }
}

protocols {
    lldp {
        interface all;
    }
}

security {
    zones {
        security-zone trust {
            interfaces {
                ge-0/0/0.0;
            }
        }
    }
}
`, deviceName, now.Format(time.DateTime), octet(rnd, 10, 50))
}

// AristaEOSConfig renders an EOS-style configuration.
func AristaEOSConfig(deviceName string, now time.Time, rnd *rand.Rand) string {
	return fmt.Sprintf(`!
! Arista EOS Configuration for %[1]s
! Generated: %[2]s
!
hostname %[1]s
!
username admin privilege 15 secret admin123
!
interface Management1
   description Management Interface
   ip address 192.168.1.%[3]d/24
   no shutdown
!
interface Ethernet1
   description Uplink to Core
   switchport mode trunk
   switchport trunk native vlan 999
   no shutdown
!
interface Ethernet2
   description Server Access
   switchport access vlan 10
   no shutdown
!
ip routing
!
vlan 10
   name Servers
!
vlan 20
   name Users
!
ntp server 10.1.1.10
!
management ssh
   client source interface Management1
   no shutdown
!
end
`, deviceName, now.Format(time.DateTime), octet(rnd, 10, 50))
}
