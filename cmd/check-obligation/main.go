package main

import (
	"fmt"
	"log"
	"math"

	"github.com/alexflint/go-arg"
	"github.com/btcsuite/btcutil/base58"

	"github.com/hedgewtf/zodial-watcher/assets"
	"github.com/hedgewtf/zodial-watcher/chain"
	"github.com/hedgewtf/zodial-watcher/common/logging"
	"github.com/hedgewtf/zodial-watcher/env"
	"github.com/hedgewtf/zodial-watcher/risk"
)

type Args struct {
	Obligation   string  `arg:"positional,required" help:"obligation account address"`
	RPCURL       string  `arg:"--rpc-url" help:"solana json-rpc endpoint"`
	ProgramID    string  `arg:"--program-id" help:"lending program id"`
	TargetHealth float64 `arg:"--target-health" default:"1.2" help:"target health for max safe borrow"`
}

func main() {
	name := "check-obligation"
	logging.Initialize(name)
	defer logging.Finalize()
	logger := logging.NewLoggerTag(name)

	args := new(Args)
	arg.MustParse(args)
	if args.RPCURL == "" {
		args.RPCURL = env.DefaultRPCURL
	}
	if args.ProgramID == "" {
		args.ProgramID = env.DefaultProgramID
	}
	logger.Info("using config %+v", args)

	obligationAddr, err := assets.CanonicalAddress(args.Obligation)
	if err != nil {
		log.Fatal(err)
	}

	client := chain.NewClient(logging.NewLoggerTag("chain"), args.RPCURL)

	accounts, err := client.GetAccounts([]string{obligationAddr})
	if err != nil {
		log.Fatal(err)
	}
	if len(accounts) == 0 || accounts[0] == nil {
		log.Fatalf("obligation %s not found", obligationAddr)
	}
	ob, err := chain.DecodeObligation(obligationAddr, accounts[0].Data)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("obligation %s\n  market %s\n  owner  %s\n", ob.Address, ob.Market, ob.Owner)

	pools, err := fetchPools(client, args.ProgramID, ob.Market)
	if err != nil {
		log.Fatal(err)
	}

	riskRegistry, err := chain.FetchRiskRegistry(client, args.ProgramID, ob.Market)
	if err != nil {
		logger.Warn("risk registry unavailable: %s", err)
	}
	var indexByMint map[string]uint16
	assetRegistry, err := chain.FetchAssetRegistry(client, args.ProgramID, ob.Market)
	if err != nil {
		logger.Warn("asset registry unavailable: %s", err)
	} else if assetRegistry != nil {
		indexByMint = assetRegistry.IndexByMint()
	}
	lookup := risk.NewLookup(logging.NewLoggerTag("risk"), riskRegistry, indexByMint)

	table := assets.Default()
	var deposits, borrows []risk.Position
	for _, position := range ob.Positions {
		asset, ok := table.ByMint(position.Mint)
		if !ok {
			logger.Warn("unlisted mint %s, skipping position", position.Mint)
			continue
		}
		pool, ok := pools[position.Mint]
		if !ok {
			logger.Warn("no pool for mint %s, skipping position", position.Mint)
			continue
		}
		if position.DepositSharesQ60 != nil && position.DepositSharesQ60.Sign() > 0 {
			amount := chain.SharesToAmount(position.DepositSharesQ60, pool.DepositFacQ60, asset.Decimals)
			deposits = append(deposits, risk.Position{Amount: amount, Asset: asset})
			fmt.Printf("  deposit %12.6f %-5s ($%.2f)\n", amount, asset.Symbol, amount*asset.PriceUsd())
		}
		if position.BorrowSharesQ60 != nil && position.BorrowSharesQ60.Sign() > 0 {
			amount := chain.SharesToAmount(position.BorrowSharesQ60, pool.BorrowFacQ60, asset.Decimals)
			borrows = append(borrows, risk.Position{Amount: amount, Asset: asset})
			fmt.Printf("  borrow  %12.6f %-5s ($%.2f)\n", amount, asset.Symbol, amount*asset.PriceUsd())
		}
	}

	ltOf := lookup.Func()
	health := risk.HealthScore(deposits, borrows, ltOf)
	if math.IsNaN(health) {
		fmt.Println("health score: n/a (no debt)")
	} else {
		fmt.Printf("health score: %.4f\n", health)
	}
	fmt.Printf("borrow limit: $%.2f\n", risk.BorrowLimit(deposits, borrows, ltOf))

	fmt.Printf("max safe borrow at health %.2f:\n", args.TargetHealth)
	for _, candidate := range table.All() {
		amount := risk.MaxSafeBorrowAmount(deposits, borrows, candidate, args.TargetHealth, ltOf)
		fmt.Printf("  %-5s %12.6f ($%.2f)\n", candidate.Symbol, amount, amount*candidate.PriceUsd())
	}
}

func fetchPools(client *chain.Client, programID, market string) (map[string]*chain.PoolFactors, error) {
	accounts, err := client.GetProgramAccounts(programID, []chain.Memcmp{
		{Offset: 0, Bytes: chain.DiscriminatorPool},
		{Offset: 8, Bytes: base58.Decode(market)},
	}, true)
	if err != nil {
		return nil, err
	}
	pools := make(map[string]*chain.PoolFactors, len(accounts))
	for _, acc := range accounts {
		pool, err := chain.DecodePool(acc.Address, acc.Data)
		if err != nil {
			return nil, err
		}
		factors := pool.Factors
		pools[pool.Mint] = &factors
	}
	return pools, nil
}
