package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/zintix-labs/batchlab"
	"github.com/zintix-labs/batchlab/demo"
	"github.com/zintix-labs/batchlab/spec"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var cfg *config = new(config)

type config struct {
	name      string
	id        spec.DID
	worker    int
	epochs    int
	seed      int64
	pprofmode string
}

type didFlag struct{ p *spec.DID }

func (f didFlag) String() string { return fmt.Sprint(uint(*f.p)) }
func (f didFlag) Set(s string) error {
	u, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return err
	}
	*f.p = spec.DID(uint(u))
	return nil
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.Var(didFlag{&cfg.id}, "data", "target dataset id")
	flag.IntVar(&cfg.worker, "worker", 1, "number of workers")
	flag.IntVar(&cfg.epochs, "epochs", 1000, "epochs per worker")
	flag.Int64Var(&cfg.seed, "seed", -1, "int64 base seed; negative uses the config seed")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs")

	flag.Parse()
}

// 這裡解析並分支要執行的分析器
func executeRunner() {
	cfg.valid() // 基本檢查

	lab, err := demo.NewBatchlab()
	if err != nil {
		log.Fatal(err)
	}

	// seed < 0：吃設定檔 seed，保持決定性；>= 0：呼叫端覆寫
	var runner *batchlab.EpochRunner
	if cfg.seed < 0 {
		runner, err = lab.NewRunner(cfg.id)
	} else {
		runner, err = lab.NewRunnerWithSeed(cfg.id, cfg.seed)
	}
	if err != nil {
		log.Fatal(err)
	}
	ent, _ := lab.EntryById(cfg.id)
	cfg.name = ent.Name
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)

	if cfg.worker == 1 { // 單線程
		p.Printf("%s[DATASET:%s] [EPOCHS:%d]%s\n", green, cfg.name, cfg.epochs, reset)
		st, used, err := runner.Run(cfg.epochs, true)
		if err != nil {
			log.Fatal(err)
		}
		st.StdOut(used)
	} else {
		p.Printf("%s[WORKERS:%d] [DATASET:%s] [EPOCHS:%d]%s\n", green, cfg.worker, cfg.name, cfg.worker*cfg.epochs, reset)
		st, used, err := runner.RunMP(cfg.epochs, cfg.worker, true) // 併發
		if err != nil {
			log.Fatal(err)
		}
		st.StdOut(used)
	}
}

func (cfg *config) valid() {
	p := message.NewPrinter(language.English)

	// 工作協程檢查(併發數)
	if cfg.worker < 1 {
		log.Fatal("value err : workers must > 0")
	}

	// epoch 檢查
	if cfg.epochs < 1 {
		log.Fatal("value err : epochs must > 0")
	}

	// 分析用的 epoch 數上限（再多對洗牌品質估計沒有意義）
	if cfg.epochs > 10000000 {
		p.Printf("too much epochs: %d resized to 10m epochs\n", cfg.epochs)
		cfg.epochs = 10000000
	}
}
