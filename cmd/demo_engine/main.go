package main

import (
	"fmt"
	"os"

	"github.com/dbkit/slotdb/engine/btree"
	"github.com/dbkit/slotdb/engine/buffer"
	"github.com/dbkit/slotdb/engine/debug"
	"github.com/dbkit/slotdb/engine/record"
	"github.com/dbkit/slotdb/engine/schema"
	"github.com/dbkit/slotdb/engine/storeerr"
	"github.com/dbkit/slotdb/engine/super"
	"github.com/dbkit/slotdb/engine/table"
	"github.com/dbkit/slotdb/logger"
	"github.com/dbkit/slotdb/server/conf"
)

func main() {
	fmt.Println("=== slotdb storage engine demo ===")

	cfg, err := conf.NewCfg().Load(&conf.CommandLineArgs{ConfigPath: configPathFromArgs()})
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(logger.Config{
		Level:     cfg.LogLevel,
		EngineLog: cfg.LogInfos,
		ErrorLog:  cfg.LogError,
	}); err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}

	s := schema.Schema{
		Fields: []schema.Field{
			{Name: "id", Type: schema.BigInt{}},
			{Name: "addr", Type: schema.Varchar{}},
		},
		KeyIndex: 0,
	}

	mgr := buffer.NewMemManager()
	tbl := table.NewMemTable("demo_orders", s)
	if err := super.Bootstrap(tbl, mgr, 1); err != nil {
		fmt.Printf("bootstrap: %v\n", err)
		os.Exit(1)
	}
	var codec record.Codec = record.Tuple{}
	tree := btree.New(mgr, tbl, s, codec, 1)

	fmt.Println("\n1. single-leaf CRUD ...")
	for _, k := range []int64{7, 3, 11, 5} {
		must(tree.Insert(row(k)))
	}
	if err := tree.Insert(row(5)); !storeerr.IsDuplicate(err) {
		fmt.Printf("expected duplicate, got %v\n", err)
		os.Exit(1)
	}
	must(tree.Remove(int64(7)))
	if _, err := tree.Search(int64(7)); !storeerr.IsNotFound(err) {
		fmt.Printf("expected not-found, got %v\n", err)
		os.Exit(1)
	}
	values, err := tree.Search(int64(5))
	must(err)
	fmt.Printf("   search(5) -> %v\n", values[0])

	fmt.Println("\n2. bulk insert until the leaf level splits ...")
	for k := int64(100); k < 2100; k++ {
		must(tree.Insert(row(k)))
	}
	stats, err := tree.Stats()
	must(err)
	fmt.Printf("   records=%d splits=%d root=%d\n", stats.RecordCount, stats.SplitCount, stats.RootBlockID)

	fmt.Println("\n3. update key 2099 to a 10x payload ...")
	must(tree.Update([]interface{}{int64(2099), wide(2099)}))
	got, err := tree.Search(int64(2099))
	must(err)
	fmt.Printf("   search(2099) payload length -> %d\n", len(got[1].(string)))

	fmt.Println("\n4. ordered scan across the leaf chain ...")
	sc, err := tree.Scan(int64(2090))
	must(err)
	n := 0
	for sc.Valid() {
		n++
		must(sc.Next())
	}
	must(sc.Close())
	fmt.Printf("   scanned %d records with key >= 2090\n", n)

	fmt.Println("\n5. remove everything back down to an empty root leaf ...")
	for k := int64(2099); k >= 100; k-- {
		must(tree.Remove(k))
	}
	for _, k := range []int64{3, 5, 11} {
		must(tree.Remove(k))
	}
	stats, err = tree.Stats()
	must(err)
	fmt.Printf("   records=%d root=%d\n", stats.RecordCount, stats.RootBlockID)

	dump, err := debug.SprintTree(mgr, tbl, codec, s)
	must(err)
	fmt.Println("\nfinal tree:")
	fmt.Println(dump)

	fmt.Println("=== demo complete ===")
}

func configPathFromArgs() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return ""
}

func row(k int64) []interface{} {
	return []interface{}{k, fmt.Sprintf("addr-%064d", k)}
}

func wide(k int64) string {
	return fmt.Sprintf("addr-%0640d", k)
}

func must(err error) {
	if err != nil {
		fmt.Printf("demo failed: %+v\n", err)
		os.Exit(1)
	}
}
