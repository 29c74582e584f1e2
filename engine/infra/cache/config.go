package cache

import "time"

type Config struct {
	Addr        string        `json:"addr,omitempty"         yaml:"addr,omitempty"         mapstructure:"addr"`
	Password    string        `json:"-"                      yaml:"-"                      mapstructure:"password"`
	DB          int           `json:"db,omitempty"           yaml:"db,omitempty"           mapstructure:"db"`
	PoolSize    int           `json:"pool_size,omitempty"    yaml:"pool_size,omitempty"    mapstructure:"pool_size"`
	DialTimeout time.Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty" mapstructure:"dial_timeout"`
	PingTimeout time.Duration `json:"ping_timeout,omitempty" yaml:"ping_timeout,omitempty" mapstructure:"ping_timeout"`
}
