package pricelist

import (
	"context"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/attribute"

	"github.com/SirPen9uin/shop-api/pkg/database"
	"github.com/SirPen9uin/shop-api/pkg/metrics"
	"github.com/SirPen9uin/shop-api/pkg/models"
	"github.com/SirPen9uin/shop-api/pkg/repositories"
	"github.com/SirPen9uin/shop-api/pkg/tracing"
)

// importLockKey serializes imports: categories, products and parameters are
// shared between shops and have no unique name.
const importLockKey = "shop-api:pricelist"

type Repositories struct {
	Shops             repositories.ShopRepo
	Categories        repositories.CategoryRepo
	Products          repositories.ProductRepo
	ProductInfos      repositories.ProductInfoRepo
	Parameters        repositories.ParameterRepo
	ProductParameters repositories.ProductParameterRepo
}

// NewRepositories builds the repositories the importer writes through.
func NewRepositories(db database.DB, logger ectologger.Logger) Repositories {
	return Repositories{
		Shops:             repositories.NewShopRepository(db, logger),
		Categories:        repositories.NewCategoryRepository(db, logger),
		Products:          repositories.NewProductRepository(db, logger),
		ProductInfos:      repositories.NewProductInfoRepository(db, logger),
		Parameters:        repositories.NewParameterRepository(db, logger),
		ProductParameters: repositories.NewProductParameterRepository(db, logger),
	}
}

type Options struct {
	// Prune deletes the shop's listings that are absent from the price list,
	// together with their order lines.
	Prune bool
}

type ImportReport struct {
	Shop              string        `json:"shop"`
	ShopID            int64         `json:"shop_id"`
	ShopCreated       bool          `json:"shop_created"`
	Categories        int           `json:"categories"`
	CategoriesCreated int           `json:"categories_created"`
	ProductsCreated   int           `json:"products_created"`
	Listings          int           `json:"listings"`
	ParametersCreated int           `json:"parameters_created"`
	Values            int           `json:"values"`
	Pruned            int           `json:"pruned"`
	Duration          time.Duration `json:"duration"`
}

type Importer struct {
	db     database.DB
	repos  Repositories
	logger ectologger.Logger
}

func NewImporter(db database.DB, repos Repositories, logger ectologger.Logger) *Importer {
	return &Importer{
		db:     db,
		repos:  repos,
		logger: logger,
	}
}

// Import loads the price list in one transaction. Any failure rolls the
// whole import back.
func (i *Importer) Import(ctx context.Context, list *PriceList, opts Options) (*ImportReport, error) {
	ctx, span := tracing.StartSpan(ctx, "Importer.Import",
		attribute.String("pricelist.shop", list.Shop),
		attribute.Bool("pricelist.prune", opts.Prune),
	)
	defer span.End()

	start := time.Now()
	report, err := i.importList(ctx, list, opts)
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordPriceListImport("failed", elapsed.Seconds())
		i.logger.WithContext(ctx).WithError(err).WithField("shop", list.Shop).Error("Price list import failed")
		return nil, err
	}

	report.Duration = elapsed
	tracing.SetAttributes(ctx,
		attribute.Int64("pricelist.shop_id", report.ShopID),
		attribute.Int("pricelist.listings", report.Listings),
	)
	metrics.RecordPriceListImport("succeeded", elapsed.Seconds())
	i.logger.WithContext(ctx).WithFields(map[string]any{
		"shop":               report.Shop,
		"shop_id":            report.ShopID,
		"listings":           report.Listings,
		"products_created":   report.ProductsCreated,
		"categories_created": report.CategoriesCreated,
		"pruned":             report.Pruned,
	}).Info("Imported price list")
	return report, nil
}

func (i *Importer) importList(ctx context.Context, list *PriceList, opts Options) (*ImportReport, error) {
	if err := list.Validate(); err != nil {
		return nil, err
	}

	report := &ImportReport{Shop: list.Shop}
	err := database.RunInTx(ctx, i.db, func(ctx context.Context) error {
		if _, err := database.Conn(ctx, i.db).ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", importLockKey); err != nil {
			return err
		}

		shop, err := i.upsertShop(ctx, list, report)
		if err != nil {
			return err
		}
		report.ShopID = shop.ID

		categories := make(map[int64]int64, len(list.Categories))
		for _, c := range list.Categories {
			id, err := i.linkCategory(ctx, c.Name, shop.ID, report)
			if err != nil {
				return err
			}
			categories[c.ID] = id
		}
		report.Categories = len(ectolinq.Distinct(ectolinq.Values(categories)))

		parameters := map[string]int64{}
		// values written per listing; a good repeated in the file overwrites
		values := map[int64]int{}
		for _, good := range list.Goods {
			listingID, n, err := i.importGood(ctx, good, categories[good.Category], shop.ID, parameters, report)
			if err != nil {
				return err
			}
			values[listingID] = n
		}
		report.Listings = len(values)
		report.Values = ectolinq.Sum(ectolinq.Values(values))

		if opts.Prune {
			return i.prune(ctx, shop.ID, values, report)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (i *Importer) upsertShop(ctx context.Context, list *PriceList, report *ImportReport) (*models.Shop, error) {
	var url *string
	if list.URL != "" {
		url = &list.URL
	}

	shop, err := i.repos.Shops.FindByName(ctx, list.Shop)
	if repositories.IsNotFound(err) {
		shop = &models.Shop{Name: list.Shop, URL: url}
		if err := i.repos.Shops.Create(ctx, shop); err != nil {
			return nil, err
		}
		report.ShopCreated = true
		return shop, nil
	}
	if err != nil {
		return nil, err
	}

	if url != nil && (shop.URL == nil || *shop.URL != *url) {
		shop.URL = url
		if err := i.repos.Shops.Update(ctx, shop); err != nil {
			return nil, err
		}
	}
	return shop, nil
}

func (i *Importer) linkCategory(ctx context.Context, name string, shopID int64, report *ImportReport) (int64, error) {
	category, err := i.repos.Categories.FindByName(ctx, name)
	if repositories.IsNotFound(err) {
		category = &models.Category{Name: name}
		if err := i.repos.Categories.Create(ctx, category); err != nil {
			return 0, err
		}
		report.CategoriesCreated++
	} else if err != nil {
		return 0, err
	}

	if err := i.repos.Categories.AddShop(ctx, category.ID, shopID); err != nil {
		return 0, err
	}
	return category.ID, nil
}

// importGood writes the good's product, listing and parameter values and
// returns the listing id and the number of values written.
func (i *Importer) importGood(ctx context.Context, good Good, categoryID, shopID int64, parameters map[string]int64, report *ImportReport) (int64, int, error) {
	product, err := i.repos.Products.FindByName(ctx, categoryID, good.Name)
	if repositories.IsNotFound(err) {
		product = &models.Product{CategoryID: categoryID, Name: good.Name}
		if err := i.repos.Products.Create(ctx, product); err != nil {
			return 0, 0, err
		}
		report.ProductsCreated++
	} else if err != nil {
		return 0, 0, err
	}

	listing := &models.ProductInfo{
		ProductID: product.ID,
		ShopID:    shopID,
		Name:      good.ListingName(),
		Quantity:  good.Quantity,
		Price:     good.Price,
		PriceRRC:  good.PriceRRC,
	}
	if err := i.repos.ProductInfos.Upsert(ctx, listing); err != nil {
		return 0, 0, err
	}

	names := good.ParameterNames()
	for _, name := range names {
		parameterID, err := i.parameterID(ctx, name, parameters, report)
		if err != nil {
			return 0, 0, err
		}

		value := &models.ProductParameter{
			ProductInfoID: listing.ID,
			ParameterID:   parameterID,
			Value:         good.ParameterValue(name),
		}
		if err := i.repos.ProductParameters.Upsert(ctx, value); err != nil {
			return 0, 0, err
		}
	}

	return listing.ID, len(names), nil
}

func (i *Importer) parameterID(ctx context.Context, name string, cache map[string]int64, report *ImportReport) (int64, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}

	parameter, err := i.repos.Parameters.FindByName(ctx, name)
	if repositories.IsNotFound(err) {
		parameter = &models.Parameter{Name: name}
		if err := i.repos.Parameters.Create(ctx, parameter); err != nil {
			return 0, err
		}
		report.ParametersCreated++
	} else if err != nil {
		return 0, err
	}

	cache[name] = parameter.ID
	return parameter.ID, nil
}

func (i *Importer) prune(ctx context.Context, shopID int64, kept map[int64]int, report *ImportReport) error {
	listings, err := i.repos.ProductInfos.ListByShop(ctx, shopID)
	if err != nil {
		return err
	}

	stale := ectolinq.Filter(listings, func(l models.ProductInfo) bool {
		_, ok := kept[l.ID]
		return !ok
	})
	for _, listing := range stale {
		if _, err := i.repos.ProductInfos.Delete(ctx, listing.ID); err != nil {
			return err
		}
		report.Pruned++
	}
	return nil
}
