// Package products reconciles source products into destination inventory items.
//
// The SKU of the primary variant is the natural key. Products without a SKU cannot be
// represented in the destination and are skipped silently. When the SKU of a mapped product
// changes, the old item is archived and a new item is created under the new SKU, because the
// destination treats a different code as a different inventory item.
package products
