package common

import (
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	saved := store
	defer func() { store = saved }()

	t.Setenv("SLURMSTAT_TEST_CLUSTER", "fox")
	err := LoadDefaults(strings.NewReader(`[data-source]
source=timescaledb
cluster=$SLURMSTAT_TEST_CLUSTER.educloud.no

[report]
merge=union
`))
	if err != nil {
		t.Fatal(err)
	}
	if !HasDefault(DataSourceSource) || HasDefault(DataSourceKafkaBroker) {
		t.Fatalf("HasDefault")
	}

	var source, cluster, broker, merge string
	if !ApplyDefault(&source, DataSourceSource) || source != "timescaledb" {
		t.Fatalf("Source: %s", source)
	}
	if !ApplyDefault(&cluster, DataSourceCluster) || cluster != "fox.educloud.no" {
		t.Fatalf("Cluster: %s", cluster)
	}
	if ApplyDefault(&broker, DataSourceKafkaBroker) || broker != "" {
		t.Fatalf("Broker: %s", broker)
	}
	merge = "arrival"
	if ApplyDefault(&merge, ReportMerge) || merge != "arrival" {
		t.Fatalf("Explicit value was overridden: %s", merge)
	}
}
